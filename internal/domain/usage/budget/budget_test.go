package budget

import "testing"

func TestNew(t *testing.T) {
	b := New(500000, 120000, 1700000000000)
	if b.TokensLimit() != 500000 {
		t.Errorf("TokensLimit() = %d", b.TokensLimit())
	}
	if b.TokensRemaining() != 120000 {
		t.Errorf("TokensRemaining() = %d", b.TokensRemaining())
	}
	if b.Unlimited() {
		t.Error("Unlimited() = true, want false")
	}
	if b.IsExhausted() {
		t.Error("IsExhausted() = true, want false")
	}
	if b.ResetsAt() != 1700000000000 {
		t.Errorf("ResetsAt() = %d", b.ResetsAt())
	}
}

func TestIsExhausted(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		remaining int
		want      bool
	}{
		{"capped and spent", 1000, 0, true},
		{"capped and overspent", 1000, -50, true},
		{"capped with headroom", 1000, 1, false},
		{"uncapped never exhausts", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.limit, tt.remaining, 0).IsExhausted(); got != tt.want {
				t.Errorf("IsExhausted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnlimited(t *testing.T) {
	if !New(0, 0, 0).Unlimited() {
		t.Error("Unlimited() = false for zero limit")
	}
}
