package subscription

// Plan describes one paid subscription tier. Prices are in INR; the
// gateway is paid in paise (Amount * 100).
type Plan struct {
	Name       string   `json:"name"`
	Price      int64    `json:"price"`
	PeriodDays int      `json:"period_days"`
	Features   []string `json:"features"`
}

// Plans is the set of purchasable tiers.
var Plans = map[string]Plan{
	"basic": {
		Name:       "Basic",
		Price:      2499,
		PeriodDays: 30,
		Features:   []string{"Up to 10 tables", "Basic analytics", "Email support"},
	},
	"pro": {
		Name:       "Pro",
		Price:      5999,
		PeriodDays: 30,
		Features:   []string{"Up to 50 tables", "Advanced analytics", "Priority support", "Kitchen display"},
	},
	"enterprise": {
		Name:       "Enterprise",
		Price:      15999,
		PeriodDays: 30,
		Features:   []string{"Unlimited tables", "Full analytics", "24/7 support", "Kitchen display", "API access"},
	},
}

// ValidPlan reports whether id names a configured plan.
func ValidPlan(id string) bool {
	_, ok := Plans[id]
	return ok
}
