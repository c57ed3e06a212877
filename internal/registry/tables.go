package registry

import "github.com/sells-group/lasqc/internal/model"

// Range is the industry-expected span of a curve's values.
type Range struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Unit string  `yaml:"unit" json:"unit,omitempty"`
}

// Contains reports whether v lies inside the closed range.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// MnemonicEntry describes a standard curve mnemonic and the aliases that map to it.
type MnemonicEntry struct {
	Standard    string         `yaml:"standard" json:"standard"`
	Aliases     []string       `yaml:"aliases" json:"aliases,omitempty"`
	Category    model.Category `yaml:"category" json:"category"`
	Unit        string         `yaml:"unit" json:"unit"`
	Description string         `yaml:"description" json:"description"`
	Track       int            `yaml:"track" json:"track"`
	Color       string         `yaml:"color" json:"color,omitempty"`
	Scale       model.Scale    `yaml:"scale" json:"scale"`
}

// UnitConversion rescales a standard curve recorded in a non-standard unit:
// value*Factor + Offset.
type UnitConversion struct {
	Mnemonic string  `yaml:"mnemonic" json:"mnemonic"`
	From     string  `yaml:"from" json:"from"`
	To       string  `yaml:"to" json:"to"`
	Factor   float64 `yaml:"factor" json:"factor"`
	Offset   float64 `yaml:"offset" json:"offset,omitempty"`
}

// Apply converts one value.
func (c UnitConversion) Apply(v float64) float64 { return v*c.Factor + c.Offset }

// Correlation is the expected Pearson correlation between two standard curves.
type Correlation struct {
	A        string  `yaml:"a" json:"a"`
	B        string  `yaml:"b" json:"b"`
	Expected float64 `yaml:"expected" json:"expected"`
}

func defaultRanges() map[string]Range {
	res := Range{Min: 0.1, Max: 10000, Unit: "OHMM"}
	return map[string]Range{
		"GR":   {Min: 0, Max: 300, Unit: "API"},
		"NPHI": {Min: -0.15, Max: 1.0, Unit: "V/V"},
		"DPHI": {Min: -0.15, Max: 1.0, Unit: "V/V"},
		"RHOB": {Min: 1.0, Max: 3.2, Unit: "G/CC"},
		"DRHO": {Min: -1.0, Max: 1.0, Unit: "G/CC"},
		"DT":   {Min: 40, Max: 240, Unit: "US/F"},
		"CALI": {Min: 4, Max: 30, Unit: "IN"},
		"SP":   {Min: -200, Max: 200, Unit: "MV"},
		"ILD":  res,
		"ILM":  res,
		"SFL":  res,
		"PEF":  {Min: 0, Max: 10, Unit: "B/E"},
		"SW":   {Min: 0, Max: 1, Unit: "V/V"},
	}
}

func defaultMnemonics() []MnemonicEntry {
	return []MnemonicEntry{
		{Standard: "GR", Aliases: []string{"GAMMA", "GRC", "SGR", "CGR", "GRD", "GR_EDTC"}, Category: model.CategoryGammaRay, Unit: "API", Description: "Gamma Ray", Track: 1, Color: "#00A000", Scale: model.ScaleLinear},
		{Standard: "SP", Aliases: []string{"SPONT", "SPBR"}, Category: model.CategorySP, Unit: "MV", Description: "Spontaneous Potential", Track: 1, Color: "#0000C0", Scale: model.ScaleLinear},
		{Standard: "CALI", Aliases: []string{"CAL", "CALX", "CALY", "HCAL"}, Category: model.CategoryCaliper, Unit: "IN", Description: "Caliper", Track: 1, Color: "#808080", Scale: model.ScaleLinear},
		{Standard: "ILD", Aliases: []string{"RILD", "RT", "RDEP", "LLD", "AT90"}, Category: model.CategoryResistivity, Unit: "OHMM", Description: "Deep Resistivity", Track: 2, Color: "#C00000", Scale: model.ScaleLogarithmic},
		{Standard: "ILM", Aliases: []string{"RILM", "RMED", "LLS", "AT30"}, Category: model.CategoryResistivity, Unit: "OHMM", Description: "Medium Resistivity", Track: 2, Color: "#E07000", Scale: model.ScaleLogarithmic},
		{Standard: "SFL", Aliases: []string{"MSFL", "RXO", "SFLU", "LL8"}, Category: model.CategoryResistivity, Unit: "OHMM", Description: "Shallow Resistivity", Track: 2, Color: "#A000A0", Scale: model.ScaleLogarithmic},
		{Standard: "NPHI", Aliases: []string{"TNPH", "NPOR", "CNL", "PHIN", "NPHI_LS"}, Category: model.CategoryPorosity, Unit: "V/V", Description: "Neutron Porosity", Track: 3, Color: "#0060FF", Scale: model.ScaleLinear},
		{Standard: "DPHI", Aliases: []string{"DPOR", "PHID"}, Category: model.CategoryPorosity, Unit: "V/V", Description: "Density Porosity", Track: 3, Color: "#00A0A0", Scale: model.ScaleLinear},
		{Standard: "RHOB", Aliases: []string{"RHOZ", "DEN", "ZDEN", "RHO"}, Category: model.CategoryDensity, Unit: "G/CC", Description: "Bulk Density", Track: 3, Color: "#C00000", Scale: model.ScaleLinear},
		{Standard: "DRHO", Aliases: []string{"HDRA", "ZCOR"}, Category: model.CategoryDensity, Unit: "G/CC", Description: "Density Correction", Track: 3, Color: "#FF8080", Scale: model.ScaleLinear},
		{Standard: "DT", Aliases: []string{"DTC", "DTCO", "AC", "SONIC"}, Category: model.CategorySonic, Unit: "US/F", Description: "Compressional Slowness", Track: 3, Color: "#800080", Scale: model.ScaleLinear},
		{Standard: "PEF", Aliases: []string{"PE", "PEFZ"}, Category: model.CategoryPhotoelectric, Unit: "B/E", Description: "Photoelectric Factor", Track: 3, Color: "#A06000", Scale: model.ScaleLinear},
		{Standard: "SW", Aliases: []string{"SWT", "SWE"}, Category: model.CategoryCustom, Unit: "V/V", Description: "Water Saturation", Track: 4, Color: "#0080FF", Scale: model.ScaleLinear},
	}
}

func defaultConversions() []UnitConversion {
	return []UnitConversion{
		{Mnemonic: "RHOB", From: "KG/M3", To: "G/CC", Factor: 0.001},
		{Mnemonic: "RHOB", From: "K/M3", To: "G/CC", Factor: 0.001},
		{Mnemonic: "NPHI", From: "%", To: "V/V", Factor: 0.01},
		{Mnemonic: "NPHI", From: "PU", To: "V/V", Factor: 0.01},
		{Mnemonic: "DPHI", From: "%", To: "V/V", Factor: 0.01},
		{Mnemonic: "DPHI", From: "PU", To: "V/V", Factor: 0.01},
		{Mnemonic: "DT", From: "US/M", To: "US/F", Factor: 0.3048},
		{Mnemonic: "CALI", From: "MM", To: "IN", Factor: 1 / 25.4},
		{Mnemonic: "SW", From: "%", To: "V/V", Factor: 0.01},
	}
}

func defaultCorrelations() []Correlation {
	return []Correlation{
		{A: "GR", B: "NPHI", Expected: 0.5},
		{A: "NPHI", B: "RHOB", Expected: -0.6},
		{A: "GR", B: "RHOB", Expected: 0.2},
	}
}
