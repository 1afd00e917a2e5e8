package charts

import (
	"encoding/json"
	"testing"
)

func TestParseBlock(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reason DropReason // empty when the block should parse
	}{
		{"empty", "", DropEmptyBlock},
		{"whitespace", "  \n\t ", DropEmptyBlock},
		{"empty object", "{}", DropEmptyBlock},
		{"empty object with comment", "{ // nothing here\n}", DropEmptyBlock},
		{"array", "[1, 2, 3]", DropNotObject},
		{"prose", "here is a chart", DropNotObject},
		{"missing comma", `{"type": "bar" "labels": []}`, DropParseError},
		{"unterminated string", `{"type": "bar}`, DropParseError},
		{"no type", `{"title": "Revenue"}`, DropMissingType},
		{"numeric type", `{"type": 5}`, DropMissingType},
		{"blank type", `{"type": "  "}`, DropMissingType},
		{"trailing comma", `{"type":"bar",}`, ""},
		{"leading line comment", "// sales by quarter\n{\"type\": \"bar\"}", ""},
		{"trailing line comment", "{\"type\": \"bar\"} // end", ""},
		{"leading block comment", "/* chart */ {\"type\": \"bar\"}", ""},
		{"comment around array", "// data\n[1, 2]", DropNotObject},
		{"comments and trailing commas", "{\n  // chart\n  \"type\": \"bar\", /* inline */\n  \"labels\": [\"a\",],\n}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, dropped := ParseBlock(tt.body)
			if tt.reason == "" {
				if dropped != nil {
					t.Fatalf("unexpected drop: %+v", dropped)
				}
				if _, ok := fields["type"]; !ok {
					t.Error("parsed block lost its type field")
				}
				return
			}
			if dropped == nil {
				t.Fatalf("expected drop with %s, got fields %v", tt.reason, fields)
			}
			if dropped.Reason != tt.reason {
				t.Errorf("reason = %s, want %s (%s)", dropped.Reason, tt.reason, dropped.Detail)
			}
		})
	}
}

func TestParseBlock_CommentMarkersInsideStrings(t *testing.T) {
	body := `{
		"type": "line", // the chart type
		"title": "Traffic from https://example.com // not a comment",
		"note": "/* also not a comment */",
	}`
	fields, dropped := ParseBlock(body)
	if dropped != nil {
		t.Fatalf("unexpected drop: %+v", dropped)
	}

	var title, note string
	if err := json.Unmarshal(fields["title"], &title); err != nil {
		t.Fatalf("title: %v", err)
	}
	if err := json.Unmarshal(fields["note"], &note); err != nil {
		t.Fatalf("note: %v", err)
	}
	if title != "Traffic from https://example.com // not a comment" {
		t.Errorf("title = %q", title)
	}
	if note != "/* also not a comment */" {
		t.Errorf("note = %q", note)
	}
}
