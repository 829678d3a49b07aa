package domain

// CoreIndicators 宏观审慎核心指标
type CoreIndicators struct {
	Month                           int     `json:"month"`
	OwnerOccupierLTIMeanAboveMedian float64 `json:"oo_lti_mean_above_median"`
	OwnerOccupierLTVMeanAboveMedian float64 `json:"oo_ltv_mean_above_median"`
	BuyToLetLTVMean                 float64 `json:"btl_ltv_mean"`
	OwnerOccupierSamples            int     `json:"oo_samples"`
	BuyToLetSamples                 int     `json:"btl_samples"`
	// 年化百分比
	HouseholdCreditGrowth     float64 `json:"household_credit_growth"`
	MortgageApprovals         float64 `json:"mortgage_approvals"`
	AdvancesToFirstTimeBuyers float64 `json:"advances_to_ftbs"`
	AdvancesToBuyToLet        float64 `json:"advances_to_btl"`
	AdvancesToHomeMovers      float64 `json:"advances_to_home_movers"`
	// 百分比
	InterestRateSpread             float64 `json:"interest_rate_spread"`
	OutstandingOwnerOccupierCredit float64 `json:"outstanding_oo_credit"`
	OutstandingBuyToLetCredit      float64 `json:"outstanding_btl_credit"`
}
