package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Kind   CategoryKind
	Amount Money
}

// MonthOverview is the monthly report: signed totals plus per-category and
// per-kind outflow breakdowns for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Inflow     Money
	Outflow    Money
	Net        Money
	Fixed      Money
	Variable   Money
	ByCategory []CategoryAmount
}

// MonthNet is one point of the historical net series used for the mean
// projection in reports.
type MonthNet struct {
	Year  int
	Month int
	Net   Money
}

// Allowance is the daily spending projection derived from the most recent
// inflow. The funding amount is amortized over one month from the inflow
// date; unspent quota carries over day to day. Fallback marks the no-inflow
// path, where the current balance is spread over the rest of the calendar
// month with no carryover.
type Allowance struct {
	Quota             Money
	AvailableToday    Money
	SpentToday        Money
	AccumulatedToday  Money
	AvailableTomorrow Money
	WindowStart       Date
	WindowDays        int
	Fallback          bool
}

// ProfileSnapshot aggregates everything the account overview screen shows:
// accounts with balances, open debts, unpaid totals per card and the
// six-month mean of inflows and outflows.
type ProfileSnapshot struct {
	Profile     Profile
	Accounts    []Account
	Debts       []Debt
	CardUnpaid  map[int64]Money
	MeanInflow  Money
	MeanOutflow Money
}
