package core

// CategoryAmount is one entry of a ranked expense breakdown.
type CategoryAmount struct {
	Category   string  `json:"category"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"` // share of period expenses, 0 when expenses are 0
}

// PeriodSummary is the compact overview for a single month.
type PeriodSummary struct {
	Period       Period `json:"period"`
	Income       Money  `json:"income"`
	Expenses     Money  `json:"expenses"`
	Balance      Money  `json:"balance"`
	Transactions int    `json:"transactions"`
}
