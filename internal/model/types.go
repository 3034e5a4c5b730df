// Package model holds the parameter and record types shared across the
// engine, the storage layer and the client facade.
package model

import "fmt"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// FitnessWeights are the per-criterion weights of the composite fitness.
// A zero weight removes the criterion from the weighted mean.
type FitnessWeights struct {
	Sensi     float64 `json:"sensi_w"`
	Speci     float64 `json:"speci_w"`
	Accuracy  float64 `json:"accu_w"`
	PPV       float64 `json:"ppv_w"`
	RMSE      float64 `json:"rmse_w"`
	RRSE      float64 `json:"rrse_w"`
	RAE       float64 `json:"rae_w"`
	MSE       float64 `json:"mse_w"`
	ADM       float64 `json:"adm_w"`
	MDM       float64 `json:"mdm_w"`
	Size      float64 `json:"size_w"`
	OverLearn float64 `json:"over_learn_w"`
}

// Sum returns the total of all weights.
func (w FitnessWeights) Sum() float64 {
	return w.Sensi + w.Speci + w.Accuracy + w.PPV +
		w.RMSE + w.RRSE + w.RAE + w.MSE +
		w.ADM + w.MDM + w.Size + w.OverLearn
}

// PopulationParameters are the per-population evolution knobs. The two
// coevolving populations each carry their own copy.
type PopulationParameters struct {
	MaxGen      int     `json:"max_gen"`
	PopSize     int     `json:"pop_size"`
	EliteSize   int     `json:"elite_size"`
	Cooperators int     `json:"cooperators"`
	CxProb      float64 `json:"cx_prob"`
	MutFlipInd  float64 `json:"mut_flip_ind"`
	MutFlipBit  float64 `json:"mut_flip_bit"`
}

// SystemParameters defines the structure of the fuzzy systems being
// evolved and the evolution settings of both populations.
type SystemParameters struct {
	DatasetName string `json:"dataset_name,omitempty"`

	NbRules       int  `json:"nb_rules"`
	NbVarPerRule  int  `json:"nb_var_per_rule"`
	NbInVars      int  `json:"nb_in_vars"`
	NbOutVars     int  `json:"nb_out_vars"`
	NbInSets      int  `json:"nb_in_sets"`
	NbOutSets     int  `json:"nb_out_sets"`
	FixedVars     bool `json:"fixed_vars"`
	InVarsCode    int  `json:"in_vars_code_size"`
	OutVarsCode   int  `json:"out_vars_code_size"`
	InSetsCode    int  `json:"in_sets_code_size"`
	OutSetsCode   int  `json:"out_sets_code_size"`
	InSetsPosCode int  `json:"in_sets_pos_code_size"`
	OutSetsPos    int  `json:"out_sets_pos_code_size"`

	Memberships PopulationParameters `json:"memberships"`
	Rules       PopulationParameters `json:"rules"`

	Weights FitnessWeights `json:"weights"`

	ThreshActivated bool      `json:"thresh_activated"`
	Thresholds      []float64 `json:"thresholds"`

	MaxFitPop1 float64 `json:"max_fit_pop1"`
	MaxFitPop2 float64 `json:"max_fit_pop2"`
}

// Default returns the parameter set the original tool starts from.
// NbInVars is filled in when a dataset is loaded.
func Default() SystemParameters {
	return SystemParameters{
		NbRules:       5,
		NbVarPerRule:  4,
		NbOutVars:     1,
		NbInSets:      2,
		NbOutSets:     2,
		InVarsCode:    1,
		OutVarsCode:   2,
		InSetsCode:    2,
		OutSetsCode:   1,
		InSetsPosCode: 4,
		OutSetsPos:    1,
		Memberships: PopulationParameters{
			MaxGen: 10, PopSize: 10, EliteSize: 5, Cooperators: 2,
			CxProb: 0.5, MutFlipInd: 0.5, MutFlipBit: 0.025,
		},
		Rules: PopulationParameters{
			MaxGen: 10, PopSize: 10, EliteSize: 5, Cooperators: 2,
			CxProb: 0.5, MutFlipInd: 0.5, MutFlipBit: 0.025,
		},
		Weights:         FitnessWeights{Sensi: 1.0, Speci: 0.8},
		ThreshActivated: true,
		Thresholds:      []float64{0.5},
		MaxFitPop1:      1.0,
		MaxFitPop2:      1.0,
	}
}

// MembershipsGenomeLen is the bit length of a membership-positions
// genome under these parameters.
func (p SystemParameters) MembershipsGenomeLen() int {
	return p.NbInVars*p.NbInSets*p.InSetsPosCode + p.NbOutVars*p.NbOutSets*p.OutSetsPos
}

// RuleLen is the bit length of one rule block. In fixed-vars mode the
// variable indices are implicit and only set codes are stored.
func (p SystemParameters) RuleLen() int {
	if p.FixedVars {
		return p.NbVarPerRule*p.InSetsCode + p.NbOutVars*p.OutSetsCode
	}
	return p.NbVarPerRule*(p.InVarsCode+p.InSetsCode) + p.NbOutVars*(p.OutVarsCode+p.OutSetsCode)
}

// DefaultRulesLen is the bit length of the default-rule suffix.
func (p SystemParameters) DefaultRulesLen() int {
	return p.NbOutVars * p.OutSetsCode
}

// RulesGenomeLen is the bit length of a rules genome: all rule blocks
// followed by the default-rule set indices.
func (p SystemParameters) RulesGenomeLen() int {
	return p.NbRules*p.RuleLen() + p.DefaultRulesLen()
}

func validatePopulation(name string, pp PopulationParameters) error {
	if pp.PopSize <= 0 {
		return fmt.Errorf("%s: population size must be > 0", name)
	}
	if pp.MaxGen <= 0 {
		return fmt.Errorf("%s: generation count must be > 0", name)
	}
	if pp.EliteSize <= 0 || pp.EliteSize > pp.PopSize {
		return fmt.Errorf("%s: elite size must be in [1, pop size]", name)
	}
	if pp.Cooperators < 0 || pp.Cooperators > pp.EliteSize {
		return fmt.Errorf("%s: cooperators must be in [0, elite size]", name)
	}
	for _, prob := range []struct {
		label string
		v     float64
	}{
		{"crossover probability", pp.CxProb},
		{"individual mutation probability", pp.MutFlipInd},
		{"per-bit mutation probability", pp.MutFlipBit},
	} {
		if prob.v < 0 || prob.v > 1 {
			return fmt.Errorf("%s: %s must be in [0, 1]", name, prob.label)
		}
	}
	return nil
}

// Validate checks structural and evolution parameters. Inconsistencies
// here are configuration errors and fail the run up front.
func (p SystemParameters) Validate() error {
	if p.NbInVars <= 0 {
		return fmt.Errorf("input variable count must be > 0")
	}
	if p.NbOutVars <= 0 {
		return fmt.Errorf("output variable count must be > 0")
	}
	if p.NbRules <= 0 {
		return fmt.Errorf("rule count must be > 0")
	}
	if p.NbVarPerRule <= 0 {
		return fmt.Errorf("antecedent slots per rule must be > 0")
	}
	if p.NbInSets <= 0 || p.NbOutSets <= 0 {
		return fmt.Errorf("set counts must be > 0")
	}
	if p.InSetsCode <= 0 || p.OutSetsCode <= 0 || p.InSetsPosCode <= 0 || p.OutSetsPos <= 0 {
		return fmt.Errorf("set code sizes must be > 0")
	}
	if !p.FixedVars && (p.InVarsCode <= 0 || p.OutVarsCode <= 0) {
		return fmt.Errorf("variable code sizes must be > 0 with evolving variables")
	}
	if len(p.Thresholds) != p.NbOutVars {
		return fmt.Errorf("threshold count %d does not match output variable count %d", len(p.Thresholds), p.NbOutVars)
	}
	if err := validatePopulation("memberships population", p.Memberships); err != nil {
		return err
	}
	if err := validatePopulation("rules population", p.Rules); err != nil {
		return err
	}
	return nil
}

// GenerationStats is one per-generation snapshot emitted by a
// population's evolution loop.
type GenerationStats struct {
	Population  string  `json:"population"`
	Generation  int     `json:"generation"`
	MinFitness  float64 `json:"min_fitness"`
	MaxFitness  float64 `json:"max_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	StdDev      float64 `json:"std_dev"`
	Size        int     `json:"size"`
}

// FitnessMetrics are the per-criterion values of one evaluated system.
type FitnessMetrics struct {
	Fitness     float64 `json:"fitness"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	Accuracy    float64 `json:"accuracy"`
	PPV         float64 `json:"ppv"`
	RMSE        float64 `json:"rmse"`
	RRSE        float64 `json:"rrse"`
	RAE         float64 `json:"rae"`
	MSE         float64 `json:"mse"`
	ADM         float64 `json:"adm"`
	MDM         float64 `json:"mdm"`
	Size        float64 `json:"size"`
	OverLearn   float64 `json:"over_learn"`
}

// RunRecord summarizes one coevolution run for storage and listing.
type RunRecord struct {
	VersionedRecord
	RunID            string  `json:"run_id"`
	DatasetName      string  `json:"dataset_name"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	Generations      int     `json:"generations"`
	PopSizeMembers   int     `json:"pop_size_memberships"`
	PopSizeRules     int     `json:"pop_size_rules"`
	Seed             int64   `json:"seed"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	Terminated       string  `json:"terminated"`
}
