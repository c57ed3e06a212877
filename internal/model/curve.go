package model

// Category groups curves by the physical property they measure.
type Category string

const (
	CategoryGammaRay      Category = "gamma_ray"
	CategoryResistivity   Category = "resistivity"
	CategoryPorosity      Category = "porosity"
	CategoryDensity       Category = "density"
	CategorySonic         Category = "sonic"
	CategoryCaliper       Category = "caliper"
	CategorySP            Category = "sp"
	CategoryPhotoelectric Category = "photoelectric"
	CategoryDepth         Category = "depth"
	CategoryCustom        Category = "custom"
)

// Scale is the display scale of a curve track.
type Scale string

const (
	ScaleLinear      Scale = "linear"
	ScaleLogarithmic Scale = "logarithmic"
)

// CurveStats summarizes a curve's values. When a curve has no valid samples
// the numeric fields are zero and ValidCount is zero.
type CurveStats struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	ValidCount   int     `json:"valid_count"`
	NullCount    int     `json:"null_count"`
	OutlierCount int     `json:"outlier_count"`
	QualityScore float64 `json:"quality_score"`
}

// Curve is a named measurement series aligned with the dataset's depth column.
type Curve struct {
	Mnemonic    string     `json:"mnemonic"`
	Unit        string     `json:"unit"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Track       int        `json:"track"`
	Color       string     `json:"color,omitempty"`
	Scale       Scale      `json:"scale"`
	Visible     bool       `json:"visible"`
	Stats       CurveStats `json:"stats"`
	Values      Samples    `json:"values"`
}

// Clone returns a deep copy of the curve.
func (c Curve) Clone() Curve {
	c.Values = c.Values.Clone()
	return c
}
