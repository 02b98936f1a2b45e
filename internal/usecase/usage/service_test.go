package usage

import (
	"context"
	"testing"
	"time"

	domusage "github.com/kailas-cloud/hopdex/internal/domain/usage"
)

// --- Mocks ---

// stubTracker reports fixed budget figures for both windows.
type stubTracker struct {
	daily, monthly windowState
}

type windowState struct {
	limit, used, remaining int64
}

func (s *stubTracker) DailyLimit() int64       { return s.daily.limit }
func (s *stubTracker) MonthlyLimit() int64     { return s.monthly.limit }
func (s *stubTracker) DailyUsed() int64        { return s.daily.used }
func (s *stubTracker) MonthlyUsed() int64      { return s.monthly.used }
func (s *stubTracker) RemainingDaily() int64   { return s.daily.remaining }
func (s *stubTracker) RemainingMonthly() int64 { return s.monthly.remaining }

// --- Tests ---

func TestGetReport_PeriodWindows(t *testing.T) {
	tracker := &stubTracker{
		daily:   windowState{limit: 10000, used: 3000, remaining: 7000},
		monthly: windowState{limit: 100000, used: 50000, remaining: 50000},
	}
	svc := New(tracker)

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		period     domusage.Period
		wantStart  int64
		wantEnd    int64
		wantLimit  int
		wantTokens int
	}{
		{
			name:       "day window",
			period:     domusage.PeriodDay,
			wantStart:  dayStart.UnixMilli(),
			wantEnd:    dayStart.Add(24 * time.Hour).UnixMilli(),
			wantLimit:  10000,
			wantTokens: 3000,
		},
		{
			name:       "month window",
			period:     domusage.PeriodMonth,
			wantStart:  monthStart.UnixMilli(),
			wantEnd:    monthStart.AddDate(0, 1, 0).UnixMilli(),
			wantLimit:  100000,
			wantTokens: 50000,
		},
		{
			name:       "total has no window",
			period:     domusage.PeriodTotal,
			wantStart:  0,
			wantEnd:    0,
			wantLimit:  100000,
			wantTokens: 50000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := svc.GetReport(context.Background(), tt.period)

			if r.Period() != tt.period {
				t.Errorf("period: got %q, want %q", r.Period(), tt.period)
			}
			if r.PeriodStart() != tt.wantStart {
				t.Errorf("period start: got %d, want %d", r.PeriodStart(), tt.wantStart)
			}
			if r.PeriodEnd() != tt.wantEnd {
				t.Errorf("period end: got %d, want %d", r.PeriodEnd(), tt.wantEnd)
			}
			if r.Budget().TokensLimit() != tt.wantLimit {
				t.Errorf("limit: got %d, want %d", r.Budget().TokensLimit(), tt.wantLimit)
			}
			if r.Metrics().Tokens() != tt.wantTokens {
				t.Errorf("tokens: got %d, want %d", r.Metrics().Tokens(), tt.wantTokens)
			}
			if r.Budget().IsExhausted() {
				t.Error("budget with tokens remaining must not read as exhausted")
			}
		})
	}
}

func TestGetReport_ResetAlignsWithWindowEnd(t *testing.T) {
	tracker := &stubTracker{daily: windowState{limit: 100, remaining: 100}}
	svc := New(tracker)

	r := svc.GetReport(context.Background(), domusage.PeriodDay)
	if r.Budget().ResetsAt() != r.PeriodEnd() {
		t.Errorf("budget reset %d should match window end %d", r.Budget().ResetsAt(), r.PeriodEnd())
	}
}

func TestGetReport_SpentBudgetIsExhausted(t *testing.T) {
	tracker := &stubTracker{daily: windowState{limit: 5000, used: 5000, remaining: 0}}
	svc := New(tracker)

	r := svc.GetReport(context.Background(), domusage.PeriodDay)
	if !r.Budget().IsExhausted() {
		t.Error("capped budget with zero remaining should be exhausted")
	}
	if r.Metrics().HasCost() {
		t.Error("no cost accounting configured, HasCost should be false")
	}
}

func TestGetReport_NilTrackerIsUnlimited(t *testing.T) {
	svc := New(nil)

	r := svc.GetReport(context.Background(), domusage.PeriodDay)
	if !r.Budget().Unlimited() {
		t.Error("nil tracker should report an unlimited budget")
	}
	if r.Budget().IsExhausted() {
		t.Error("unlimited budget cannot be exhausted")
	}
	if r.Metrics().Tokens() != 0 {
		t.Errorf("tokens: got %d, want 0", r.Metrics().Tokens())
	}
}
