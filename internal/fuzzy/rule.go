package fuzzy

import (
	"fmt"
	"strings"
)

// Pair binds a variable index to one of its set indices.
type Pair struct {
	Var int
	Set int
}

// Rule is one fuzzy rule: if every antecedent holds (minimum), then
// each consequent's output set receives the firing strength. A rule
// whose antecedent list filtered down to nothing is retained but never
// fires.
type Rule struct {
	In  []Pair
	Out []Pair
}

// Describe renders the rule against the given variables, for run
// output and persisted-system descriptions.
func (r Rule) Describe(inVars, outVars []*Variable) string {
	if len(r.In) == 0 {
		return "(empty rule)"
	}
	var b strings.Builder
	b.WriteString("IF ")
	for i, p := range r.In {
		if i > 0 {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s is %s", inVars[p.Var].Name(), inVars[p.Var].Set(p.Set).Name)
	}
	b.WriteString(" THEN ")
	for i, p := range r.Out {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s is %s", outVars[p.Var].Name(), outVars[p.Var].Set(p.Set).Name)
	}
	return b.String()
}
