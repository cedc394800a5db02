package quota

import "testing"

func TestNewDailyBudgetAllowsBurstUpToPerDay(t *testing.T) {
	b := NewDailyBudget(3)

	allowed := 0
	for i := 0; i < 5; i++ {
		if b.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("got %d allowed calls, want 3 (the daily burst)", allowed)
	}
}

func TestNewDailyBudgetRejectsNonPositive(t *testing.T) {
	b := NewDailyBudget(0)
	if !b.Allow() {
		t.Error("expected at least one token from a non-positive perDay, clamped to 1")
	}
}
