// Package panel defines the fixed advisory panel whose votes are required to
// reach consensus on a decision.
package panel

// Advisor is one member of the closed panel. ID is the identity responses are
// keyed by; Role and Mandate label the synthesized narrative.
type Advisor struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Mandate string `json:"mandate"`
}

// The panel is closed and ordered. Completeness checks, majority math, and
// narrative ordering all derive from this list.
var advisors = []Advisor{
	{
		ID:      "strategist",
		Role:    "Strategist",
		Mandate: "Judges long-term direction and whether the proposal moves the goals forward",
	},
	{
		ID:      "analyst",
		Role:    "Analyst",
		Mandate: "Judges feasibility, cost, and what the available data supports",
	},
	{
		ID:      "guardian",
		Role:    "Guardian",
		Mandate: "Judges downside risk, reversibility, and failure modes",
	},
}

// Advisors returns the panel in its stable order.
func Advisors() []Advisor {
	out := make([]Advisor, len(advisors))
	copy(out, advisors)
	return out
}

// Lookup returns the advisor with the given ID.
func Lookup(id string) (Advisor, bool) {
	for _, a := range advisors {
		if a.ID == id {
			return a, true
		}
	}
	return Advisor{}, false
}

// IsAdvisor reports whether id names a panel member.
func IsAdvisor(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// Size returns the number of required advisors.
func Size() int {
	return len(advisors)
}

// MajorityThreshold returns the minimum vote count that constitutes a
// majority: strictly more than half the panel (2 of 3).
func MajorityThreshold() int {
	return Size()/2 + 1
}
