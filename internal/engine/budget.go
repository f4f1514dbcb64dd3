package engine

// DecisionBudget caps how much deferred decision work a single catch-up run
// may perform. The cap is per run, not per elapsed second, so replay cost
// stays bounded no matter how long the server was down.
type DecisionBudget struct {
	limit int
	used  int
}

// NewDecisionBudget creates a budget allowing at most limit decisions.
func NewDecisionBudget(limit int) *DecisionBudget {
	return &DecisionBudget{limit: limit}
}

// TryConsume claims one decision slot. Returns false once the budget is
// exhausted.
func (b *DecisionBudget) TryConsume() bool {
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// Used reports how many decisions were consumed.
func (b *DecisionBudget) Used() int {
	return b.used
}

// Remaining reports how many decisions are left.
func (b *DecisionBudget) Remaining() int {
	if b.used >= b.limit {
		return 0
	}
	return b.limit - b.used
}

// Reset returns the budget to its full allowance.
func (b *DecisionBudget) Reset() {
	b.used = 0
}
