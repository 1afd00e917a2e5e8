// Package charts extracts chart definitions embedded in model answers.
//
// A model answer may carry any number of fenced blocks tagged "chart":
//
//	```chart
//	{"type": "bar", "data": {"labels": [...], "datasets": [...]}}
//	```
//
// Each block is scanned, leniently parsed, normalized into a models.ChartSpec
// and replaced in the text by a placeholder token. Blocks that fail at any stage
// are removed from the text and reported as DroppedBlock values; they never
// stop the rest of the answer from rendering.
package charts

import (
	"regexp"
)

// chartFencePattern matches a ```chart fence anywhere in the text, its body and
// the closing fence. Indentation before a line-leading fence is part of the match.
// The spacing and line break after the closing fence are captured so a dropped
// block does not leave an empty line or a double space behind.
var chartFencePattern = regexp.MustCompile("(?m)(?:^[ \\t]*)?```chart\\b[ \\t]*\\r?\\n?([\\s\\S]*?)```([ \\t]*\\r?\\n|[ \\t]+)?")

// FenceMatch is one fenced chart region found in text
type FenceMatch struct {
	Start    int    // byte offset of the opening fence
	End      int    // byte offset just past the match (including Trailing)
	Body     string // raw text between the fences
	Trailing string // spacing and line break consumed after the closing fence, if any
}

// ScanFences returns every chart fence in document order
func ScanFences(text string) []FenceMatch {
	locs := chartFencePattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]FenceMatch, 0, len(locs))
	for _, loc := range locs {
		m := FenceMatch{
			Start: loc[0],
			End:   loc[1],
			Body:  text[loc[2]:loc[3]],
		}
		if loc[4] >= 0 {
			m.Trailing = text[loc[4]:loc[5]]
		}
		matches = append(matches, m)
	}
	return matches
}
