package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChartType identifies how the charting UI draws a ChartSpec
type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartLine      ChartType = "line"
	ChartArea      ChartType = "area"
	ChartPie       ChartType = "pie"
	ChartDoughnut  ChartType = "doughnut"
	ChartScatter   ChartType = "scatter"
	ChartBubble    ChartType = "bubble"
	ChartRadar     ChartType = "radar"
	ChartPolarArea ChartType = "polarArea"
)

// IsCoordinate reports whether the chart plots {x,y[,r]} points instead of labelled values
func (t ChartType) IsCoordinate() bool {
	return t == ChartScatter || t == ChartBubble
}

// IsLineFamily reports whether datasets are drawn as lines (translucent fill, smoothing)
func (t ChartType) IsLineFamily() bool {
	return t == ChartLine || t == ChartArea || t == ChartRadar
}

// ChartSpec is the canonical chart shape consumed by the charting UI.
// Every accepted input shape is normalized into this form.
type ChartSpec struct {
	Type     ChartType `json:"type"`
	Title    string    `json:"title,omitempty"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// HasRenderableData reports whether at least one dataset carries a usable value
func (c *ChartSpec) HasRenderableData() bool {
	if c == nil {
		return false
	}
	for _, ds := range c.Datasets {
		if ds.NumericCount() > 0 {
			return true
		}
	}
	return false
}

// Dataset is one series of a chart plus its styling attributes (Chart.js naming)
type Dataset struct {
	Label            string      `json:"label"`
	Data             []DataPoint `json:"data"`
	BackgroundColor  string      `json:"backgroundColor"`
	BorderColor      string      `json:"borderColor"`
	BorderWidth      int         `json:"borderWidth"`
	Fill             bool        `json:"fill"`
	Tension          float64     `json:"tension,omitempty"`
	PointRadius      float64     `json:"pointRadius"`
	PointHoverRadius float64     `json:"pointHoverRadius"`
}

// NumericCount returns how many points carry a usable value
func (d Dataset) NumericCount() int {
	n := 0
	for _, p := range d.Data {
		if p.Valid {
			n++
		}
	}
	return n
}

// DataPoint is either a plain number or an {x,y,r} coordinate.
// A point with Valid == false is a gap and encodes as JSON null.
type DataPoint struct {
	X     *float64
	Y     float64
	R     *float64
	Valid bool
}

// Num returns a plain numeric point
func Num(v float64) DataPoint {
	return DataPoint{Y: v, Valid: true}
}

// Coord returns an {x,y} point
func Coord(x, y float64) DataPoint {
	return DataPoint{X: &x, Y: y, Valid: true}
}

// Bubble returns an {x,y,r} point
func Bubble(x, y, r float64) DataPoint {
	return DataPoint{X: &x, Y: y, R: &r, Valid: true}
}

// Gap returns a null point
func Gap() DataPoint {
	return DataPoint{}
}

// IsCoordinate reports whether the point carries an x coordinate
func (p DataPoint) IsCoordinate() bool {
	return p.X != nil
}

func (p DataPoint) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	if p.X == nil {
		return json.Marshal(p.Y)
	}
	out := struct {
		X float64  `json:"x"`
		Y float64  `json:"y"`
		R *float64 `json:"r,omitempty"`
	}{X: *p.X, Y: p.Y, R: p.R}
	return json.Marshal(out)
}

func (p *DataPoint) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Gap()
		return nil
	}
	if b[0] == '{' {
		var c struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
			R *float64 `json:"r"`
		}
		if err := json.Unmarshal(b, &c); err != nil {
			return fmt.Errorf("invalid chart point: %w", err)
		}
		if c.X == nil || c.Y == nil {
			*p = Gap()
			return nil
		}
		*p = DataPoint{X: c.X, Y: *c.Y, R: c.R, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid chart point: %w", err)
	}
	*p = Num(v)
	return nil
}
