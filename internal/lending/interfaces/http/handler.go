package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	centralbank "github.com/wyfcoding/mortgagebank/internal/centralbank/domain"
	"github.com/wyfcoding/mortgagebank/internal/lending/application"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
	"github.com/wyfcoding/mortgagebank/pkg/logger"
)

// PopulationSetter 月度调度使用的家庭总数
type PopulationSetter interface {
	SetPopulation(population int) error
	Population() int
}

// LendingHandler HTTP 处理器
type LendingHandler struct {
	service *application.LendingService
	driver  PopulationSetter
}

func NewLendingHandler(service *application.LendingService, driver PopulationSetter) *LendingHandler {
	return &LendingHandler{service: service, driver: driver}
}

// RegisterRoutes 注册路由
func (h *LendingHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/lending")
	{
		api.POST("/quotes", h.Quote)
		api.POST("/mortgages", h.Originate)
		api.GET("/mortgages/:id", h.GetMortgage)
		api.DELETE("/mortgages/:id", h.Terminate)
		api.POST("/max-price", h.MaxPrice)
		api.POST("/steps", h.Step)
		api.PUT("/population", h.SetPopulation)
		api.GET("/state", h.State)
		api.PUT("/policy", h.UpdatePolicy)
		api.GET("/indicators", h.Indicators)
	}

	cb := router.Group("/api/v1/central-bank")
	{
		cb.GET("/policy", h.CentralBankPolicy)
		cb.PUT("/policy", h.UpdateCentralBankPolicy)
	}
}

// Quote 报价
func (h *LendingHandler) Quote(c *gin.Context) {
	var cmd application.LoanCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.service.Quote(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Originate 放贷，拒贷时返回 200 与 void=true
func (h *LendingHandler) Originate(c *gin.Context) {
	var cmd application.LoanCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.service.Originate(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	if dto.Void {
		c.JSON(http.StatusOK, dto)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

func (h *LendingHandler) GetMortgage(c *gin.Context) {
	dto, err := h.service.Mortgage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Terminate 结束合同，reason 取 SALE/DEFAULT/PAYOFF/OTHER
func (h *LendingHandler) Terminate(c *gin.Context) {
	dto, err := h.service.Terminate(c.Request.Context(), application.TerminateCommand{
		ID:     c.Param("id"),
		Reason: c.Query("reason"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *LendingHandler) MaxPrice(c *gin.Context) {
	var q application.MaxPriceQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.service.MaxPrice(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Step 手动触发月度利率调整
func (h *LendingHandler) Step(c *gin.Context) {
	var cmd application.StepCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Step(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *LendingHandler) SetPopulation(c *gin.Context) {
	var req struct {
		Population int `json:"population"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.driver.SetPopulation(req.Population); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"population": h.driver.Population()})
}

func (h *LendingHandler) State(c *gin.Context) {
	state, err := h.service.State(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *LendingHandler) UpdatePolicy(c *gin.Context) {
	var cmd application.PolicyCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.service.UpdatePolicy(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *LendingHandler) Indicators(c *gin.Context) {
	ind, err := h.service.Indicators(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ind)
}

func (h *LendingHandler) CentralBankPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.CentralBankPolicy(c.Request.Context()))
}

func (h *LendingHandler) UpdateCentralBankPolicy(c *gin.Context) {
	var v centralbank.PolicyValues
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.UpdateCentralBankPolicy(c.Request.Context(), v)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *LendingHandler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "lending request failed", "path", c.FullPath(), "error", err)
	}

	var inv *domain.InvariantError
	if errors.As(err, &inv) {
		c.JSON(code, gin.H{
			"error": err.Error(),
			"invariant": gin.H{
				"op":            inv.Op,
				"borrower_id":   inv.BorrowerID,
				"down_payment":  inv.DownPayment,
				"liquid_wealth": inv.LiquidWealth,
				"reason":        inv.Reason,
			},
		})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvariantViolation):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrMortgageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidHousePrice),
		errors.Is(err, domain.ErrInvalidPopulation),
		errors.Is(err, domain.ErrInvalidPolicy),
		errors.Is(err, domain.ErrInvalidTerminationReason),
		errors.Is(err, centralbank.ErrInvalidPolicy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
