package fuzzy

import (
	"fmt"
	"math"
	"sort"

	"fugo/internal/genome"
)

// DecodeMemberships interprets g as a membership layout and loads the
// set positions into the system's variables. Each position code scales
// into the variable's universe; within a variable the decoded positions
// are sorted ascending before assignment, so the genome encodes a
// multiset of positions rather than an ordered list.
func (s *System) DecodeMemberships(g *genome.BitGenome) error {
	want := s.params.MembershipsGenomeLen()
	if g.Len() != want {
		return fmt.Errorf("memberships genome is %d bits, layout requires %d", g.Len(), want)
	}

	offset := 0
	for _, v := range s.inVars {
		positions := make([]float64, s.params.NbInSets)
		u := v.Universe()
		step := (u.Max - u.Min) / (math.Pow(2, float64(s.params.InSetsPosCode)) - 1)
		for k := range positions {
			code := g.Uint(offset, s.params.InSetsPosCode)
			positions[k] = u.Min + float64(code)*step
			offset += s.params.InSetsPosCode
		}
		sort.Float64s(positions)
		if err := v.SetPositions(positions); err != nil {
			return err
		}
	}
	for _, v := range s.outVars {
		positions := make([]float64, s.params.NbOutSets)
		u := v.Universe()
		step := (u.Max - u.Min) / (math.Pow(2, float64(s.params.OutSetsPos)) - 1)
		for k := range positions {
			code := g.Uint(offset, s.params.OutSetsPos)
			positions[k] = u.Min + float64(code)*step
			offset += s.params.OutSetsPos
		}
		sort.Float64s(positions)
		if err := v.SetPositions(positions); err != nil {
			return err
		}
	}

	s.membershipsLoaded = true
	return nil
}

// DecodeRules interprets g as a rule set plus default rules and loads
// it into the system. Antecedent pairs whose variable or set index
// decodes out of range are dropped as don't-care; consequent and
// default-rule set indices out of range clamp to set 0. Consequent slot
// k always drives output variable k.
func (s *System) DecodeRules(g *genome.BitGenome) error {
	want := s.params.RulesGenomeLen()
	if g.Len() != want {
		return fmt.Errorf("rules genome is %d bits, layout requires %d", g.Len(), want)
	}

	rules := make([]Rule, s.params.NbRules)
	ruleLen := s.params.RuleLen()
	for k := 0; k < s.params.NbRules; k++ {
		rules[k] = s.decodeRule(g, k*ruleLen)
	}

	defaults := make([]int, s.params.NbOutVars)
	offset := s.params.NbRules * ruleLen
	for i := range defaults {
		val := int(g.Uint(offset, s.params.OutSetsCode))
		if val >= s.params.NbOutSets {
			val = 0
		}
		defaults[i] = val
		offset += s.params.OutSetsCode
	}

	return s.SetRules(rules, defaults)
}

func (s *System) decodeRule(g *genome.BitGenome, offset int) Rule {
	var r Rule
	for slot := 0; slot < s.params.NbVarPerRule; slot++ {
		varIdx := slot
		if !s.params.FixedVars {
			varIdx = int(g.Uint(offset, s.params.InVarsCode))
			offset += s.params.InVarsCode
		}
		setIdx := int(g.Uint(offset, s.params.InSetsCode))
		offset += s.params.InSetsCode
		if varIdx >= s.params.NbInVars || setIdx >= s.params.NbInSets {
			continue
		}
		r.In = append(r.In, Pair{Var: varIdx, Set: setIdx})
	}
	for out := 0; out < s.params.NbOutVars; out++ {
		if !s.params.FixedVars {
			// The slot binds the output variable; the variable code is
			// carried in the genome but does not rebind it.
			offset += s.params.OutVarsCode
		}
		setIdx := int(g.Uint(offset, s.params.OutSetsCode))
		offset += s.params.OutSetsCode
		if setIdx >= s.params.NbOutSets {
			setIdx = 0
		}
		r.Out = append(r.Out, Pair{Var: out, Set: setIdx})
	}
	return r
}

// Load decodes a memberships/rules genome pair into the system after
// resetting any previously loaded state.
func (s *System) Load(memberships, rules *genome.BitGenome) error {
	s.Reset()
	if err := s.DecodeMemberships(memberships); err != nil {
		return err
	}
	return s.DecodeRules(rules)
}
