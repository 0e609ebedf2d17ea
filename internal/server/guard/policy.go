package guard

import (
	"fmt"

	"github.com/dmitrijs2005/abroadportal/internal/common"
)

// Rule is the capability required to call one operation.
type Rule struct {
	Public  bool
	Admin   bool
	MinStep int
}

// Policy maps operation names to rules. Operations missing from the table
// are denied.
type Policy map[string]Rule

// Lookup returns the rule for op.
func (p Policy) Lookup(op string) (Rule, bool) {
	r, ok := p[op]
	return r, ok
}

// Authorize checks s against the rule registered for op. Public operations
// accept a nil session.
func (p Policy) Authorize(op string, s *Session) error {
	r, ok := p[op]
	if !ok {
		return fmt.Errorf("%w: no policy for %s", common.ErrorUnauthorized, op)
	}
	if r.Public {
		return nil
	}
	if s == nil {
		return common.ErrorUnauthorized
	}
	if r.Admin {
		return RequireAdmin(s)
	}
	if r.MinStep > 0 && !s.IsAdmin() {
		return RequireStep(s, r.MinStep)
	}
	return nil
}
