package fuzzy

import (
	"fmt"
	"strings"

	"fugo/internal/dataset"
	"fugo/internal/model"
)

// DefuzzResolution is the grid size used for centroid defuzzification.
const DefuzzResolution = 100

// Firing thresholds for the rule-activity bookkeeping consumed by the
// over-learning criterion.
const (
	firedLevel   = 0.2
	winnerMargin = 0.2
)

// System is one fully loaded fuzzy system: variables with positioned
// sets, rules and default rules. A System is bound to the dataset it
// was built from and is not safe for concurrent use; each evaluation
// worker owns its own instance.
type System struct {
	params model.SystemParameters
	table  *dataset.Table

	inVars  []*Variable
	outVars []*Variable

	rules        []Rule
	defaultRules []int

	membershipsLoaded bool
	rulesLoaded       bool
}

// NewSystem builds the variable skeleton for the given dataset. Sets
// are created at position zero and filled in by a memberships decode or
// an XML load.
func NewSystem(params model.SystemParameters, table *dataset.Table) (*System, error) {
	if table == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	params.NbInVars = table.NbInVars
	params.NbOutVars = table.NbOutVars
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &System{
		params:       params,
		table:        table,
		inVars:       make([]*Variable, table.NbInVars),
		outVars:      make([]*Variable, table.NbOutVars),
		defaultRules: make([]int, table.NbOutVars),
	}
	for i := 0; i < table.NbInVars; i++ {
		v := NewVariable(table.InName(i), Coco, table.InUniverse(i))
		for l := 0; l < params.NbInSets; l++ {
			v.AddSet(fmt.Sprintf("MF %d", l), 0, l)
		}
		s.inVars[i] = v
	}
	for i := 0; i < table.NbOutVars; i++ {
		v := NewVariable(table.OutName(i), Singleton, table.OutUniverse(i))
		v.SetOutput(true)
		for l := 0; l < params.NbOutSets; l++ {
			v.AddSet(fmt.Sprintf("MF %d", l), 0, l)
		}
		s.outVars[i] = v
	}
	return s, nil
}

func (s *System) Params() model.SystemParameters { return s.params }
func (s *System) Table() *dataset.Table          { return s.table }
func (s *System) InVars() []*Variable            { return s.inVars }
func (s *System) OutVars() []*Variable           { return s.outVars }
func (s *System) Rules() []Rule                  { return s.rules }
func (s *System) DefaultRules() []int            { return s.defaultRules }

// Reset drops the loaded rule base and membership state so the system
// can be reloaded with the next genome pair.
func (s *System) Reset() {
	s.rules = nil
	for i := range s.defaultRules {
		s.defaultRules[i] = 0
	}
	for _, v := range s.inVars {
		v.SetUsedBySystem(false)
	}
	s.membershipsLoaded = false
	s.rulesLoaded = false
}

// Loaded reports whether both genomes have been decoded into the system.
func (s *System) Loaded() bool {
	return s.membershipsLoaded && s.rulesLoaded
}

// SetRules installs an already decoded rule base, marking every
// referenced input variable as used.
func (s *System) SetRules(rules []Rule, defaults []int) error {
	if len(defaults) != len(s.outVars) {
		return fmt.Errorf("%d default rules for %d output variables", len(defaults), len(s.outVars))
	}
	for i, d := range defaults {
		if d < 0 || d >= s.params.NbOutSets {
			return fmt.Errorf("default rule %d references set %d of %d", i, d, s.params.NbOutSets)
		}
	}
	s.rules = rules
	copy(s.defaultRules, defaults)
	for _, r := range rules {
		for _, p := range r.In {
			s.inVars[p.Var].SetUsedBySystem(true)
		}
	}
	s.rulesLoaded = true
	return nil
}

// SampleResult is the outcome of evaluating one dataset sample.
type SampleResult struct {
	// Defuzz and Thresh are per output variable.
	Defuzz []float64
	Thresh []float64
	// Fired flags each rule whose firing reached the activity level.
	Fired []bool
	// Winner is the index of the strongest rule, -1 when none fired.
	// WinnerClear reports that it beat the runner-up by the margin (or
	// that there was no runner-up).
	Winner      int
	WinnerClear bool
}

// Threshold maps a crisp value through the per-output classification
// threshold: 1 at or above the threshold, 0 for non-negative values
// below it, -1 otherwise. With thresholding disabled the value passes
// through.
func (s *System) Threshold(outVar int, value float64) float64 {
	if !s.params.ThreshActivated {
		return value
	}
	switch {
	case value >= s.params.Thresholds[outVar]:
		return 1
	case value >= 0:
		return 0
	default:
		return -1
	}
}

// EvaluateSample runs one dataset row through the loaded system:
// fuzzify the used inputs, fire the rules (minimum over antecedents,
// maximum accumulation on consequents), apply the default rules, then
// defuzzify and threshold each output.
func (s *System) EvaluateSample(sample int) (SampleResult, error) {
	if !s.Loaded() {
		return SampleResult{}, fmt.Errorf("fuzzy system is not fully loaded")
	}

	res := SampleResult{
		Defuzz: make([]float64, len(s.outVars)),
		Thresh: make([]float64, len(s.outVars)),
		Fired:  make([]bool, len(s.rules)),
		Winner: -1,
	}
	maxFired := make([]float64, len(s.outVars))
	for _, v := range s.outVars {
		v.ClearEval()
	}

	for i, v := range s.inVars {
		if !v.UsedBySystem() {
			continue
		}
		cell := s.table.In(sample, i)
		if cell.Missing {
			v.SetMissing()
			v.ClearEval()
			continue
		}
		v.SetInputValue(cell.Value)
		v.Evaluate(cell.Value)
	}

	winnerFire, secondFire := 0.0, 0.0
	for i, r := range s.rules {
		if len(r.In) == 0 {
			continue
		}
		firing := s.fire(r)
		for _, p := range r.Out {
			set := s.outVars[p.Var].Set(p.Set)
			if firing > set.Eval {
				set.Eval = firing
			}
			if firing > maxFired[p.Var] {
				maxFired[p.Var] = firing
			}
		}
		if firing >= firedLevel {
			res.Fired[i] = true
		}
		if firing > winnerFire {
			secondFire = winnerFire
			winnerFire = firing
			res.Winner = i
		} else if firing > secondFire {
			secondFire = firing
		}
	}
	if res.Winner >= 0 && (winnerFire-secondFire >= winnerMargin || secondFire == 0) {
		res.WinnerClear = true
	}

	// The default rule of each output fires with the complement of the
	// strongest rule referencing it, accumulating like any other rule.
	for i, v := range s.outVars {
		set := v.Set(s.defaultRules[i])
		if firing := 1 - maxFired[i]; firing > set.Eval {
			set.Eval = firing
		}
	}

	for i, v := range s.outVars {
		value, err := v.Defuzz(DefuzzResolution)
		if err != nil {
			return SampleResult{}, err
		}
		res.Defuzz[i] = value
		res.Thresh[i] = s.Threshold(i, value)
	}
	return res, nil
}

// fire computes the antecedent firing strength: the minimum membership
// across the rule's pairs. A missing-value variable contributes zero.
func (s *System) fire(r Rule) float64 {
	firing := 1.0
	for _, p := range r.In {
		v := s.inVars[p.Var]
		mu := 0.0
		if !v.Missing() {
			mu = v.Set(p.Set).Eval
		}
		if mu < firing {
			firing = mu
		}
	}
	return firing
}

// Describe renders the rule base, default rules and the membership
// positions of the variables the system uses.
func (s *System) Describe() string {
	var b strings.Builder
	for _, r := range s.rules {
		b.WriteString(r.Describe(s.inVars, s.outVars))
		b.WriteString("\n")
	}
	b.WriteString(" ELSE :")
	for i, v := range s.outVars {
		fmt.Fprintf(&b, " %s is %d ", v.Name(), s.defaultRules[i])
	}
	b.WriteString("\n\nMembership functions :\n")
	for _, v := range s.inVars {
		if !v.UsedBySystem() {
			continue
		}
		writeVarPositions(&b, v)
	}
	for _, v := range s.outVars {
		writeVarPositions(&b, v)
	}
	return b.String()
}

func writeVarPositions(b *strings.Builder, v *Variable) {
	fmt.Fprintf(b, "%s (", v.Name())
	for i, set := range v.Sets() {
		if i > 0 {
			b.WriteString(" , ")
		}
		fmt.Fprintf(b, "%g", set.Position)
	}
	b.WriteString(")\n")
}
