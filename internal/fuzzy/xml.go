package fuzzy

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"fugo/internal/dataset"
	"fugo/internal/model"
)

// PersistedSystem is the on-disk XML form of a trained fuzzy system.
// The element vocabulary is fixed; saves of a loaded document are
// byte-identical to the source document.
type PersistedSystem struct {
	XMLName     xml.Name           `xml:"Fuzzy_System"`
	DatasetName string             `xml:"Dataset_name"`
	Fitness     PersistedFitness   `xml:"Fitness"`
	Variables   PersistedVariables `xml:"Variables"`
	Rules       PersistedRules     `xml:"Rules"`
}

type PersistedFitness struct {
	Value      float64            `xml:"Value"`
	SensiW     float64            `xml:"SensiW"`
	SpeciW     float64            `xml:"SpeciW"`
	AccuW      float64            `xml:"AccuW"`
	PPVW       float64            `xml:"PPVW"`
	RMSEW      float64            `xml:"RMSEW"`
	RRSEW      float64            `xml:"RRSEW"`
	RAEW       float64            `xml:"RAEW"`
	MSEW       float64            `xml:"MSEW"`
	ADMW       float64            `xml:"ADMW"`
	MDMW       float64            `xml:"MDMW"`
	SizeW      float64            `xml:"SizeW"`
	OverLearnW float64            `xml:"OverLearnW"`
	Threshold  PersistedThreshold `xml:"Threshold"`
}

type PersistedThreshold struct {
	Thresh []float64 `xml:"Thresh"`
}

type PersistedVariables struct {
	In  []PersistedVariable `xml:"Variable_in"`
	Out []PersistedVariable `xml:"Variable_out"`
}

type PersistedVariable struct {
	Name string         `xml:"Name"`
	Sets []PersistedSet `xml:"Set"`
}

type PersistedSet struct {
	Name     string  `xml:"Set_name"`
	Position float64 `xml:"Set_position"`
}

type PersistedRules struct {
	Rules    []PersistedRule   `xml:"Rule"`
	Defaults PersistedDefaults `xml:"Default_Rules"`
}

type PersistedDefaults struct {
	Sets []int `xml:"Default_Rule"`
}

// PersistedRule stores antecedent and consequent pairs by name. On the
// wire the pairs are interleaved (In_Var, In_Set, In_Var, In_Set, …),
// which a plain struct mapping cannot express, so the rule carries its
// own codec.
type PersistedRule struct {
	InVars  []string
	InSets  []string
	OutVars []string
	OutSets []string
}

func (r PersistedRule) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if len(r.InVars) != len(r.InSets) || len(r.OutVars) != len(r.OutSets) {
		return fmt.Errorf("rule pair lists are unbalanced")
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for i := range r.InVars {
		if err := encodeTextElement(e, "In_Var", r.InVars[i]); err != nil {
			return err
		}
		if err := encodeTextElement(e, "In_Set", r.InSets[i]); err != nil {
			return err
		}
	}
	for i := range r.OutVars {
		if err := encodeTextElement(e, "Out_Var", r.OutVars[i]); err != nil {
			return err
		}
		if err := encodeTextElement(e, "Out_Set", r.OutSets[i]); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func (r *PersistedRule) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var text string
			if err := d.DecodeElement(&text, &t); err != nil {
				return err
			}
			switch t.Name.Local {
			case "In_Var":
				r.InVars = append(r.InVars, text)
			case "In_Set":
				r.InSets = append(r.InSets, text)
			case "Out_Var":
				r.OutVars = append(r.OutVars, text)
			case "Out_Set":
				r.OutSets = append(r.OutSets, text)
			default:
				return fmt.Errorf("unexpected element %s inside Rule", t.Name.Local)
			}
		case xml.EndElement:
			if len(r.InVars) != len(r.InSets) || len(r.OutVars) != len(r.OutSets) {
				return fmt.Errorf("rule pair lists are unbalanced")
			}
			return nil
		}
	}
}

func encodeTextElement(e *xml.Encoder, name, text string) error {
	return e.EncodeElement(text, xml.StartElement{Name: xml.Name{Local: name}})
}

// Persist captures the loaded system with its fitness value and the
// weights/thresholds it was trained under. Input variables no rule
// references and rules with no antecedents are skipped, as in saved
// systems of the original tool.
func Persist(s *System, fitness float64) (*PersistedSystem, error) {
	if !s.Loaded() {
		return nil, fmt.Errorf("fuzzy system is not fully loaded")
	}
	p := s.params
	doc := &PersistedSystem{
		DatasetName: p.DatasetName,
		Fitness: PersistedFitness{
			Value:      fitness,
			SensiW:     p.Weights.Sensi,
			SpeciW:     p.Weights.Speci,
			AccuW:      p.Weights.Accuracy,
			PPVW:       p.Weights.PPV,
			RMSEW:      p.Weights.RMSE,
			RRSEW:      p.Weights.RRSE,
			RAEW:       p.Weights.RAE,
			MSEW:       p.Weights.MSE,
			ADMW:       p.Weights.ADM,
			MDMW:       p.Weights.MDM,
			SizeW:      p.Weights.Size,
			OverLearnW: p.Weights.OverLearn,
			Threshold:  PersistedThreshold{Thresh: append([]float64(nil), p.Thresholds...)},
		},
	}

	for _, v := range s.inVars {
		if !v.UsedBySystem() {
			continue
		}
		doc.Variables.In = append(doc.Variables.In, persistVariable(v))
	}
	for _, v := range s.outVars {
		doc.Variables.Out = append(doc.Variables.Out, persistVariable(v))
	}

	for _, r := range s.rules {
		if len(r.In) == 0 {
			continue
		}
		var pr PersistedRule
		for _, pair := range r.In {
			pr.InVars = append(pr.InVars, s.inVars[pair.Var].Name())
			pr.InSets = append(pr.InSets, s.inVars[pair.Var].Set(pair.Set).Name)
		}
		for _, pair := range r.Out {
			pr.OutVars = append(pr.OutVars, s.outVars[pair.Var].Name())
			pr.OutSets = append(pr.OutSets, s.outVars[pair.Var].Set(pair.Set).Name)
		}
		doc.Rules.Rules = append(doc.Rules.Rules, pr)
	}
	doc.Rules.Defaults.Sets = append([]int(nil), s.defaultRules...)
	return doc, nil
}

func persistVariable(v *Variable) PersistedVariable {
	pv := PersistedVariable{Name: v.Name()}
	for _, set := range v.Sets() {
		pv.Sets = append(pv.Sets, PersistedSet{Name: set.Name, Position: set.Position})
	}
	return pv
}

// EncodeXML writes the document with the XML header and two-space
// indentation.
func (p *PersistedSystem) EncodeXML(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	data, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// DecodeXML parses a persisted system document.
func DecodeXML(r io.Reader) (*PersistedSystem, error) {
	var doc PersistedSystem
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode fuzzy system: %w", err)
	}
	return &doc, nil
}

// SaveFile persists the document to path.
func (p *PersistedSystem) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.EncodeXML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a persisted system document from path.
func LoadFile(path string) (*PersistedSystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeXML(f)
}

// Apply merges the persisted weights and thresholds into base and
// returns the parameter set the document was trained under.
func (p *PersistedSystem) Apply(base model.SystemParameters) model.SystemParameters {
	base.Weights = model.FitnessWeights{
		Sensi:     p.Fitness.SensiW,
		Speci:     p.Fitness.SpeciW,
		Accuracy:  p.Fitness.AccuW,
		PPV:       p.Fitness.PPVW,
		RMSE:      p.Fitness.RMSEW,
		RRSE:      p.Fitness.RRSEW,
		RAE:       p.Fitness.RAEW,
		MSE:       p.Fitness.MSEW,
		ADM:       p.Fitness.ADMW,
		MDM:       p.Fitness.MDMW,
		Size:      p.Fitness.SizeW,
		OverLearn: p.Fitness.OverLearnW,
	}
	if len(p.Fitness.Threshold.Thresh) > 0 {
		base.Thresholds = append([]float64(nil), p.Fitness.Threshold.Thresh...)
	}
	if p.DatasetName != "" {
		base.DatasetName = p.DatasetName
	}
	return base
}

// System reconstructs a runnable system over the given dataset. The
// persisted input variables are matched to dataset columns by name;
// persisted set positions and rules replace whatever a genome decode
// would have produced.
func (p *PersistedSystem) System(base model.SystemParameters, table *dataset.Table) (*System, error) {
	if len(p.Variables.In) == 0 || len(p.Variables.Out) == 0 {
		return nil, fmt.Errorf("persisted system has no variables")
	}
	params := p.Apply(base)
	params.NbRules = len(p.Rules.Rules)
	if params.NbRules == 0 {
		return nil, fmt.Errorf("persisted system has no rules")
	}
	params.NbInSets = len(p.Variables.In[0].Sets)
	params.NbOutSets = len(p.Variables.Out[0].Sets)
	if len(params.Thresholds) != table.NbOutVars {
		return nil, fmt.Errorf("persisted system has %d thresholds, dataset has %d outputs", len(params.Thresholds), table.NbOutVars)
	}

	sys, err := NewSystem(params, table)
	if err != nil {
		return nil, err
	}

	// Install the persisted sets on the matching dataset variables.
	for _, pv := range p.Variables.In {
		v, err := findVariable(sys.inVars, pv.Name)
		if err != nil {
			return nil, err
		}
		if err := applySets(v, pv); err != nil {
			return nil, err
		}
	}
	for _, pv := range p.Variables.Out {
		v, err := findVariable(sys.outVars, pv.Name)
		if err != nil {
			return nil, err
		}
		if err := applySets(v, pv); err != nil {
			return nil, err
		}
	}
	sys.membershipsLoaded = true

	rules := make([]Rule, 0, len(p.Rules.Rules))
	for _, pr := range p.Rules.Rules {
		r, err := buildRule(sys, pr)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	defaults := make([]int, table.NbOutVars)
	copy(defaults, p.Rules.Defaults.Sets)
	if err := sys.SetRules(rules, defaults); err != nil {
		return nil, err
	}
	return sys, nil
}

func findVariable(vars []*Variable, name string) (*Variable, error) {
	for _, v := range vars {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("dataset has no variable named %q", name)
}

func findVariableIndex(vars []*Variable, name string) (int, error) {
	for i, v := range vars {
		if v.Name() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("dataset has no variable named %q", name)
}

func applySets(v *Variable, pv PersistedVariable) error {
	if len(pv.Sets) != v.SetsCount() {
		return fmt.Errorf("variable %s: %d persisted sets for %d", pv.Name, len(pv.Sets), v.SetsCount())
	}
	for i, ps := range pv.Sets {
		set := v.Set(i)
		set.Name = ps.Name
		set.Position = ps.Position
	}
	return nil
}

func buildRule(sys *System, pr PersistedRule) (Rule, error) {
	var r Rule
	for i := range pr.InVars {
		varIdx, err := findVariableIndex(sys.inVars, pr.InVars[i])
		if err != nil {
			return Rule{}, err
		}
		setIdx, err := sys.inVars[varIdx].SetIndexByName(pr.InSets[i])
		if err != nil {
			return Rule{}, err
		}
		r.In = append(r.In, Pair{Var: varIdx, Set: setIdx})
	}
	for i := range pr.OutVars {
		varIdx, err := findVariableIndex(sys.outVars, pr.OutVars[i])
		if err != nil {
			return Rule{}, err
		}
		setIdx, err := sys.outVars[varIdx].SetIndexByName(pr.OutSets[i])
		if err != nil {
			return Rule{}, err
		}
		r.Out = append(r.Out, Pair{Var: varIdx, Set: setIdx})
	}
	return r, nil
}
