package charts

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tailscale/hujson"
)

// DropReason classifies why a chart block did not become a chart
type DropReason string

const (
	DropEmptyBlock       DropReason = "empty_block"
	DropNotObject        DropReason = "not_object"
	DropParseError       DropReason = "parse_error"
	DropMissingType      DropReason = "missing_type"
	DropSchemaMismatch   DropReason = "schema_mismatch"
	DropValidationFailed DropReason = "validation_failed"
	DropInternalError    DropReason = "internal_error"
)

// DroppedBlock records a chart block that was removed from the answer
type DroppedBlock struct {
	Index  int        `json:"index"` // position among all chart fences in the text
	Reason DropReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// BlockFields is a parsed chart block: a non-empty object with a "type" field,
// values kept raw for the shape decoder.
type BlockFields map[string]json.RawMessage

// ParseBlock cleans and parses the body of a chart fence.
//
// Comments and trailing commas are removed with a real HuJSON parser before the
// object check, so comments around the object are allowed and "//" inside a
// string literal survives. It never panics and never returns an error:
// an unusable body is reported as a DroppedBlock.
func ParseBlock(body string) (BlockFields, *DroppedBlock) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, &DroppedBlock{Reason: DropEmptyBlock}
	}

	standard, err := hujson.Minimize([]byte(trimmed))
	if err != nil {
		if !strings.Contains(trimmed, "{") {
			return nil, notObject()
		}
		return nil, &DroppedBlock{Reason: DropParseError, Detail: err.Error()}
	}
	standard = bytes.TrimSpace(standard)
	if len(standard) == 0 {
		return nil, &DroppedBlock{Reason: DropEmptyBlock}
	}
	if !bytes.HasPrefix(standard, []byte("{")) || !bytes.HasSuffix(standard, []byte("}")) {
		return nil, notObject()
	}
	if bytes.Equal(standard, []byte("{}")) {
		return nil, &DroppedBlock{Reason: DropEmptyBlock, Detail: "empty object"}
	}

	var fields BlockFields
	if err := json.Unmarshal(standard, &fields); err != nil {
		return nil, &DroppedBlock{Reason: DropParseError, Detail: err.Error()}
	}
	if len(fields) == 0 {
		return nil, &DroppedBlock{Reason: DropEmptyBlock, Detail: "empty object"}
	}

	var chartType string
	if err := json.Unmarshal(fields["type"], &chartType); err != nil || strings.TrimSpace(chartType) == "" {
		return nil, &DroppedBlock{Reason: DropMissingType, Detail: "chart block has no string \"type\" field"}
	}
	return fields, nil
}

func notObject() *DroppedBlock {
	return &DroppedBlock{Reason: DropNotObject, Detail: "chart block must be a JSON object"}
}
