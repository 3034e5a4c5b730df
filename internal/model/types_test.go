package model

import "testing"

func validParams() SystemParameters {
	p := Default()
	p.NbInVars = 4
	return p
}

func TestGenomeLengths(t *testing.T) {
	p := validParams()
	// 4 inputs x 2 sets x 4 bits + 1 output x 2 sets x 1 bit.
	if got := p.MembershipsGenomeLen(); got != 34 {
		t.Fatalf("memberships genome length = %d, want 34", got)
	}
	// Evolving vars: 4 slots x (1+2) + 1 output x (2+1) = 15 per rule.
	if got := p.RuleLen(); got != 15 {
		t.Fatalf("rule length = %d, want 15", got)
	}
	if got := p.RulesGenomeLen(); got != 5*15+1 {
		t.Fatalf("rules genome length = %d, want %d", got, 5*15+1)
	}

	p.FixedVars = true
	// Fixed vars: 4 slots x 2 + 1 output x 1 = 9 per rule.
	if got := p.RuleLen(); got != 9 {
		t.Fatalf("fixed-vars rule length = %d, want 9", got)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Fatalf("default parameters rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SystemParameters)
	}{
		{"no inputs", func(p *SystemParameters) { p.NbInVars = 0 }},
		{"no outputs", func(p *SystemParameters) { p.NbOutVars = 0 }},
		{"no rules", func(p *SystemParameters) { p.NbRules = 0 }},
		{"zero pos code", func(p *SystemParameters) { p.InSetsPosCode = 0 }},
		{"zero var code", func(p *SystemParameters) { p.InVarsCode = 0 }},
		{"elite over pop", func(p *SystemParameters) { p.Rules.EliteSize = p.Rules.PopSize + 1 }},
		{"cooperators over elite", func(p *SystemParameters) { p.Memberships.Cooperators = p.Memberships.EliteSize + 1 }},
		{"crossover prob", func(p *SystemParameters) { p.Rules.CxProb = 1.5 }},
		{"threshold count", func(p *SystemParameters) { p.Thresholds = nil }},
	}
	for _, tc := range cases {
		p := validParams()
		tc.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateAllowsFixedVarsWithoutVarCodes(t *testing.T) {
	p := validParams()
	p.FixedVars = true
	p.InVarsCode = 0
	p.OutVarsCode = 0
	if err := p.Validate(); err != nil {
		t.Fatalf("fixed-vars parameters rejected: %v", err)
	}
}

func TestWeightsSum(t *testing.T) {
	w := FitnessWeights{Sensi: 1, Speci: 0.8, Size: 0.2}
	if got := w.Sum(); got != 2.0 {
		t.Fatalf("weight sum = %v, want 2.0", got)
	}
}
