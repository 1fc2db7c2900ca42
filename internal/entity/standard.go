package entity

// ReferenceRange is the clinically normal interval for a biomarker.
type ReferenceRange struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// ReferenceRanges holds the gender-scoped ranges for a standard.
type ReferenceRanges struct {
	Male   ReferenceRange `json:"male" yaml:"male"`
	Female ReferenceRange `json:"female" yaml:"female"`
}

// BiomarkerStandard is one catalog entry: the canonical reference record for
// a lab measurement type. Immutable after catalog load.
type BiomarkerStandard struct {
	Code            string             `json:"code" yaml:"code"`
	Name            string             `json:"name" yaml:"name"`
	Aliases         []string           `json:"aliases,omitempty" yaml:"aliases"`
	Category        string             `json:"category" yaml:"category"`
	StandardUnit    string             `json:"standard_unit" yaml:"standard_unit"`
	UnitConversions map[string]float64 `json:"unit_conversions,omitempty" yaml:"unit_conversions"`
	ReferenceRanges ReferenceRanges    `json:"reference_ranges" yaml:"reference_ranges"`
}
