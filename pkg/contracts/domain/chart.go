package domain

// ChartKind enumerates the fixed chart catalog.
type ChartKind string

const (
	ChartHistogram ChartKind = "histogram"
	ChartBox       ChartKind = "box"
	ChartScatter   ChartKind = "scatter"
	ChartLine      ChartKind = "line"
	ChartBar       ChartKind = "bar"
	ChartPie       ChartKind = "pie"
	ChartHeatmap   ChartKind = "heatmap"
	ChartViolin    ChartKind = "violin"
)

// ChartSpec is a chart request. Columns are addressed by name and validated
// against the table's profiles before rendering.
type ChartSpec struct {
	Kind    ChartKind `json:"kind" validate:"required,oneof=histogram box scatter line bar pie heatmap violin"`
	Columns []string  `json:"columns" validate:"required,min=1,dive,required"`
	GroupBy string    `json:"group_by,omitempty"`
	Bins    int       `json:"bins,omitempty" validate:"omitempty,min=2,max=200"`
	TopN    int       `json:"top_n,omitempty" validate:"omitempty,min=1,max=100"`
}

// ChartPoint is a single x/y pair. X is a string so datetime and
// categorical axes share one representation; Label carries the group for
// colored series.
type ChartPoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// ChartSeries is one named sequence of points or raw values.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points,omitempty"`
	Values []float64    `json:"values,omitempty"`
}

// HistogramBin is one histogram bucket.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// ChartDescription is the renderable result of a chart request. It carries
// data and labels, not pixels; the external rendering layer consumes it.
type ChartDescription struct {
	Kind   ChartKind          `json:"kind"`
	Title  string             `json:"title"`
	XLabel string             `json:"x_label,omitempty"`
	YLabel string             `json:"y_label,omitempty"`
	Series []ChartSeries      `json:"series,omitempty"`
	Bins   []HistogramBin     `json:"bins,omitempty"`
	Matrix *CorrelationMatrix `json:"matrix,omitempty"`
}
