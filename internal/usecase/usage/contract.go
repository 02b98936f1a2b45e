package usage

// BudgetReader exposes read-only token budget state from the tracker.
// Daily and monthly windows are reported separately because they reset
// on different schedules.
type BudgetReader interface {
	DailyLimit() int64
	MonthlyLimit() int64
	DailyUsed() int64
	MonthlyUsed() int64
	RemainingDaily() int64
	RemainingMonthly() int64
}
