package types

import "fmt"

// BudgetKind discriminates the three output-length policies.
type BudgetKind string

const (
	// BudgetAdvisory is a soft target rendered into the instruction text.
	// It is never sent to the transport as a structural limit.
	BudgetAdvisory BudgetKind = "advisory"
	// BudgetEnforced is a hard ceiling passed structurally to the transport.
	BudgetEnforced BudgetKind = "enforced"
	// BudgetUnbounded sends no output cap at all.
	BudgetUnbounded BudgetKind = "unbounded"
)

// OutputBudget is a tagged output-length policy. The zero value is Unbounded.
//
// The distinction matters for two-tier prompting: fan-out branches receive an
// advisory target embedded in their instruction so the transport never
// truncates them, while the synthesis call carries an enforced ceiling large
// enough to address every gathered opinion.
type OutputBudget struct {
	kind   BudgetKind
	tokens int
}

// Advisory returns a soft output target of n tokens.
func Advisory(n int) OutputBudget {
	return OutputBudget{kind: BudgetAdvisory, tokens: n}
}

// Enforced returns a hard output ceiling of n tokens.
func Enforced(n int) OutputBudget {
	return OutputBudget{kind: BudgetEnforced, tokens: n}
}

// Unbounded returns a budget with no output cap.
func Unbounded() OutputBudget {
	return OutputBudget{kind: BudgetUnbounded}
}

// Kind returns the budget discriminator. The zero value reports
// BudgetUnbounded.
func (b OutputBudget) Kind() BudgetKind {
	if b.kind == "" {
		return BudgetUnbounded
	}
	return b.kind
}

// Tokens returns the token count for advisory and enforced budgets, and 0 for
// unbounded ones.
func (b OutputBudget) Tokens() int {
	return b.tokens
}

// IsEnforced reports whether the budget is a hard transport-level ceiling.
func (b OutputBudget) IsEnforced() bool {
	return b.Kind() == BudgetEnforced
}

// IsAdvisory reports whether the budget is a soft instruction-level target.
func (b OutputBudget) IsAdvisory() bool {
	return b.Kind() == BudgetAdvisory
}

// String implements fmt.Stringer.
func (b OutputBudget) String() string {
	switch b.Kind() {
	case BudgetAdvisory:
		return fmt.Sprintf("advisory(%d)", b.tokens)
	case BudgetEnforced:
		return fmt.Sprintf("enforced(%d)", b.tokens)
	default:
		return "unbounded"
	}
}
