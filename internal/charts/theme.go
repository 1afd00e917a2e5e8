package charts

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Theme holds the styling applied to every normalized chart
type Theme struct {
	Palette            []string `yaml:"palette"`
	BarOpacity         float64  `yaml:"bar_opacity"`
	LineOpacity        float64  `yaml:"line_opacity"`
	LineTension        float64  `yaml:"line_tension"`
	BorderWidth        int      `yaml:"border_width"`
	PointRadius        float64  `yaml:"point_radius"`
	PointHoverRadius   float64  `yaml:"point_hover_radius"`
	ScatterPointRadius float64  `yaml:"scatter_point_radius"`
	ScatterHoverRadius float64  `yaml:"scatter_hover_radius"`
}

// DefaultTheme returns the built-in dashboard palette
func DefaultTheme() Theme {
	return Theme{
		Palette: []string{
			"#3B82F6", // blue
			"#10B981", // green
			"#F59E0B", // amber
			"#EF4444", // red
			"#8B5CF6", // violet
			"#EC4899", // pink
			"#06B6D4", // cyan
			"#84CC16", // lime
		},
		BarOpacity:         0.8,
		LineOpacity:        0.2,
		LineTension:        0.4,
		BorderWidth:        2,
		PointRadius:        3,
		PointHoverRadius:   5,
		ScatterPointRadius: 6,
		ScatterHoverRadius: 8,
	}
}

// LoadTheme reads a YAML theme file. Fields missing from the file keep their
// default values. An empty path returns the default theme.
func LoadTheme(path string) (Theme, error) {
	theme := DefaultTheme()
	if path == "" {
		return theme, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return theme, fmt.Errorf("failed to read chart theme: %w", err)
	}
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return DefaultTheme(), fmt.Errorf("failed to parse chart theme: %w", err)
	}
	if err := theme.Validate(); err != nil {
		return DefaultTheme(), err
	}
	return theme, nil
}

// Validate checks that every palette entry is a #RRGGBB color and opacities are in range
func (t Theme) Validate() error {
	if len(t.Palette) == 0 {
		return fmt.Errorf("chart theme palette is empty")
	}
	for _, c := range t.Palette {
		if _, _, _, ok := parseHexColor(c); !ok {
			return fmt.Errorf("invalid palette color %q (want #RRGGBB)", c)
		}
	}
	for name, v := range map[string]float64{"bar_opacity": t.BarOpacity, "line_opacity": t.LineOpacity} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
		}
	}
	return nil
}

// Color returns the palette color for a dataset position
func (t Theme) Color(index int) string {
	if len(t.Palette) == 0 {
		return DefaultTheme().Palette[index%8]
	}
	if index < 0 {
		index = -index
	}
	return t.Palette[index%len(t.Palette)]
}

// RGBA converts a #RRGGBB color to an rgba() string with the given opacity
func RGBA(hex string, opacity float64) string {
	r, g, b, ok := parseHexColor(hex)
	if !ok {
		return hex
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(opacity, 'f', -1, 64))
}

func parseHexColor(hex string) (r, g, b int64, ok bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int64((v >> 16) & 0xFF), int64((v >> 8) & 0xFF), int64(v & 0xFF), true
}
