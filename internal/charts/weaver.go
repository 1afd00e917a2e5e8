package charts

import (
	"fmt"
	"regexp"
	"strings"

	"llmboundary/internal/logging"
	"llmboundary/internal/models"

	"github.com/sirupsen/logrus"
)

// PlaceholderFormat is the token a valid chart fence is replaced with
const PlaceholderFormat = "[[CHART:%d]]"

var placeholderPattern = regexp.MustCompile(`\[\[CHART:\d+\]\]`)

// Extraction is the result of pulling chart fences out of an answer
type Extraction struct {
	Text    string             `json:"text"`
	Charts  []models.ChartSpec `json:"charts"`
	Dropped []DroppedBlock     `json:"dropped"`
}

// DropReasons lists the reason of every dropped block, in order
func (e Extraction) DropReasons() []string {
	reasons := make([]string, len(e.Dropped))
	for i, d := range e.Dropped {
		reasons[i] = string(d.Reason)
	}
	return reasons
}

// SegmentKind tells a renderer what a Segment holds
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentChart SegmentKind = "chart"
)

// Segment is one piece of a woven answer: markdown text or a chart
type Segment struct {
	Kind  SegmentKind       `json:"kind"`
	Text  string            `json:"text,omitempty"`
	Chart *models.ChartSpec `json:"chart,omitempty"`
}

// Extractor turns model answers into text with placeholders plus chart specs
type Extractor struct {
	theme Theme
	log   *logrus.Entry
}

// NewExtractor creates an extractor that styles charts with theme
func NewExtractor(theme Theme, log *logrus.Entry) *Extractor {
	if log == nil {
		log = logging.Discard()
	}
	return &Extractor{theme: theme, log: log}
}

// Extract replaces every valid chart fence with a placeholder and removes the
// invalid ones. The input text is never modified.
func (e *Extractor) Extract(text string) Extraction {
	result := Extraction{
		Charts:  []models.ChartSpec{},
		Dropped: []DroppedBlock{},
	}

	matches := ScanFences(text)
	if len(matches) == 0 {
		result.Text = text
		return result
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for i, m := range matches {
		b.WriteString(text[last:m.Start])
		last = m.End

		spec, dropped := e.processBlock(m.Body)
		if dropped != nil {
			dropped.Index = i
			result.Dropped = append(result.Dropped, *dropped)
			e.log.WithFields(logrus.Fields{
				"block":  i,
				"reason": dropped.Reason,
				"detail": dropped.Detail,
			}).Warn("⚠️  [CHARTS] Dropped chart block")
			continue
		}

		fmt.Fprintf(&b, PlaceholderFormat, len(result.Charts))
		b.WriteString(m.Trailing)
		result.Charts = append(result.Charts, *spec)
	}
	b.WriteString(text[last:])
	result.Text = b.String()

	e.log.WithFields(logrus.Fields{
		"charts":  len(result.Charts),
		"dropped": len(result.Dropped),
	}).Debug("📊 [CHARTS] Extracted charts from answer")
	return result
}

// processBlock runs one fence body through parsing and normalization. A panic
// stays inside the block and drops it.
func (e *Extractor) processBlock(body string) (spec *models.ChartSpec, dropped *DroppedBlock) {
	defer func() {
		if r := recover(); r != nil {
			spec = nil
			dropped = &DroppedBlock{Reason: DropInternalError, Detail: fmt.Sprint(r)}
		}
	}()

	fields, dropped := ParseBlock(body)
	if dropped != nil {
		return nil, dropped
	}
	return Normalize(fields, e.theme)
}

// Render splits text at its placeholders and pairs each one, left to right,
// with the next chart. Placeholders without a chart render as nothing; charts
// left over after the last placeholder are appended at the end.
func Render(text string, charts []models.ChartSpec) []Segment {
	segments := make([]Segment, 0, 2*len(charts)+1)
	next := 0

	last := 0
	for _, loc := range placeholderPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segments = append(segments, Segment{Kind: SegmentText, Text: text[last:loc[0]]})
		}
		last = loc[1]
		if next < len(charts) {
			segments = append(segments, chartSegment(charts[next]))
			next++
		}
	}
	if last < len(text) {
		segments = append(segments, Segment{Kind: SegmentText, Text: text[last:]})
	}
	for ; next < len(charts); next++ {
		segments = append(segments, chartSegment(charts[next]))
	}
	return segments
}

func chartSegment(spec models.ChartSpec) Segment {
	return Segment{Kind: SegmentChart, Chart: &spec}
}
