package persona

import (
	"fmt"
	"strings"

	"github.com/arbiterlabs/council/types"
)

// Composer turns a descriptor into the system instruction sent with a
// completion request.
type Composer struct{}

// NewComposer creates a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the instruction text for d. Advisory budgets append one
// sentence asking the persona to aim for roughly that many tokens; enforced
// and unbounded budgets add nothing, since hard ceilings travel structurally
// on the request instead.
func (c *Composer) Compose(d Descriptor, budget types.OutputBudget) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(d.Identity)

	if d.Role != "" {
		fmt.Fprintf(&b, "\n\nYou are acting as %s", d.Role)
		if d.Focus != "" {
			fmt.Fprintf(&b, ", focusing on %s", d.Focus)
		}
		b.WriteString(".")
	}

	if budget.IsAdvisory() {
		fmt.Fprintf(&b, "\n\nAim to keep your answer under roughly %d tokens.", budget.Tokens())
	}

	return b.String(), nil
}
