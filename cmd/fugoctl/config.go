package main

import (
	"encoding/json"
	"math"
	"os"

	"fugo/internal/model"
)

// loadParamsFromConfig reads a JSON parameter file on top of the
// defaults. Unknown keys are ignored so configs stay forward
// compatible.
func loadParamsFromConfig(path string) (model.SystemParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SystemParameters{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.SystemParameters{}, err
	}

	params := model.Default()
	if v, ok := asString(raw["dataset_name"]); ok {
		params.DatasetName = v
	}
	if v, ok := asInt(raw["nb_rules"]); ok {
		params.NbRules = v
	}
	if v, ok := asInt(raw["nb_var_per_rule"]); ok {
		params.NbVarPerRule = v
	}
	if v, ok := asInt(raw["nb_out_vars"]); ok {
		params.NbOutVars = v
	}
	if v, ok := asInt(raw["nb_in_sets"]); ok {
		params.NbInSets = v
	}
	if v, ok := asInt(raw["nb_out_sets"]); ok {
		params.NbOutSets = v
	}
	if v, ok := asBool(raw["fixed_vars"]); ok {
		params.FixedVars = v
	}
	if v, ok := asInt(raw["in_vars_code_size"]); ok {
		params.InVarsCode = v
	}
	if v, ok := asInt(raw["out_vars_code_size"]); ok {
		params.OutVarsCode = v
	}
	if v, ok := asInt(raw["in_sets_code_size"]); ok {
		params.InSetsCode = v
	}
	if v, ok := asInt(raw["out_sets_code_size"]); ok {
		params.OutSetsCode = v
	}
	if v, ok := asInt(raw["in_sets_pos_code_size"]); ok {
		params.InSetsPosCode = v
	}
	if v, ok := asInt(raw["out_sets_pos_code_size"]); ok {
		params.OutSetsPos = v
	}

	if pop, ok := raw["memberships"].(map[string]any); ok {
		params.Memberships = loadPopulation(pop, params.Memberships)
	}
	if pop, ok := raw["rules"].(map[string]any); ok {
		params.Rules = loadPopulation(pop, params.Rules)
	}

	if weights, ok := raw["weights"].(map[string]any); ok {
		params.Weights = loadWeights(weights, params.Weights)
	}

	if v, ok := asBool(raw["thresh_activated"]); ok {
		params.ThreshActivated = v
	}
	if list, ok := asFloatList(raw["thresholds"]); ok {
		params.Thresholds = list
	}
	if v, ok := asFloat64(raw["max_fit_pop1"]); ok {
		params.MaxFitPop1 = v
	}
	if v, ok := asFloat64(raw["max_fit_pop2"]); ok {
		params.MaxFitPop2 = v
	}
	return params, nil
}

func loadPopulation(raw map[string]any, base model.PopulationParameters) model.PopulationParameters {
	if v, ok := asInt(raw["max_gen"]); ok {
		base.MaxGen = v
	}
	if v, ok := asInt(raw["pop_size"]); ok {
		base.PopSize = v
	}
	if v, ok := asInt(raw["elite_size"]); ok {
		base.EliteSize = v
	}
	if v, ok := asInt(raw["cooperators"]); ok {
		base.Cooperators = v
	}
	if v, ok := asFloat64(raw["cx_prob"]); ok {
		base.CxProb = v
	}
	if v, ok := asFloat64(raw["mut_flip_ind"]); ok {
		base.MutFlipInd = v
	}
	if v, ok := asFloat64(raw["mut_flip_bit"]); ok {
		base.MutFlipBit = v
	}
	return base
}

func loadWeights(raw map[string]any, base model.FitnessWeights) model.FitnessWeights {
	if v, ok := asFloat64(raw["sensi_w"]); ok {
		base.Sensi = v
	}
	if v, ok := asFloat64(raw["speci_w"]); ok {
		base.Speci = v
	}
	if v, ok := asFloat64(raw["accu_w"]); ok {
		base.Accuracy = v
	}
	if v, ok := asFloat64(raw["ppv_w"]); ok {
		base.PPV = v
	}
	if v, ok := asFloat64(raw["rmse_w"]); ok {
		base.RMSE = v
	}
	if v, ok := asFloat64(raw["rrse_w"]); ok {
		base.RRSE = v
	}
	if v, ok := asFloat64(raw["rae_w"]); ok {
		base.RAE = v
	}
	if v, ok := asFloat64(raw["mse_w"]); ok {
		base.MSE = v
	}
	if v, ok := asFloat64(raw["adm_w"]); ok {
		base.ADM = v
	}
	if v, ok := asFloat64(raw["mdm_w"]); ok {
		base.MDM = v
	}
	if v, ok := asFloat64(raw["size_w"]); ok {
		base.Size = v
	}
	if v, ok := asFloat64(raw["over_learn_w"]); ok {
		base.OverLearn = v
	}
	return base
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asFloatList(v any) ([]float64, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		f, ok := item.(float64)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
