package domain

// MonthlyCounters 本月放贷统计，每月由 Step 清零
type MonthlyCounters struct {
	SupplyVolume       float64 `json:"supply_volume"`
	OOMortgages        int     `json:"oo_mortgages"`
	OOMortgagesOverLTI int     `json:"oo_mortgages_over_lti"`
}

// Reset 月初清零
func (c *MonthlyCounters) Reset() {
	*c = MonthlyCounters{}
}

// OverLTIFraction 超 LTI 自住贷款比例，加一平滑
func (c MonthlyCounters) OverLTIFraction() float64 {
	return float64(c.OOMortgagesOverLTI+1) / float64(c.OOMortgages+1)
}

func (c *MonthlyCounters) record(principal float64, ownerOccupier, overRegulatoryLTI bool) {
	c.SupplyVolume += principal
	if principal <= 0 || !ownerOccupier {
		return
	}
	c.OOMortgages++
	if overRegulatoryLTI {
		c.OOMortgagesOverLTI++
	}
}
