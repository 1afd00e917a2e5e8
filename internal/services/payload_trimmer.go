package services

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

const (
	// MaxChartDatasets caps how many datasets of a chart-shaped payload survive trimming
	MaxChartDatasets = 3
	// MaxChartPoints caps the data points kept per dataset
	MaxChartPoints = 100
	// MaxMappingKeys caps how many keys of a generic object survive trimming
	MaxMappingKeys = 20
)

// Marker keys attached to trimmed values. They live on the value itself so the
// model sees that it is looking at a partial view.
const (
	MarkerTrimmed        = "_trimmed"
	MarkerOriginalLength = "_originalLength"
	MarkerKeptKeys       = "_keptKeys"
	MarkerTotalKeys      = "_totalKeys"
	MarkerSummary        = "_summary"
)

// TrimPayload shrinks value so its serialized token estimate fits maxTokens.
//
//   - under budget: returned as is
//   - sequence: front-biased cut to a proportional prefix (at least one element)
//   - chart-shaped object (has a "datasets" sequence): first 3 datasets, 100 points each
//   - other objects: first 20 keys, oversized values replaced with a smaller summary stub
//   - scalars: returned as is
//
// Nested values are only inspected one level deep. The input is never mutated.
func TrimPayload(value interface{}, maxTokens int) interface{} {
	estimate := EstimateValueTokens(value)
	if estimate <= maxTokens {
		return value
	}

	if seq, ok := asSequence(value); ok {
		return trimSequence(seq, maxTokens, estimate)
	}

	if obj, ok := asOrderedMap(value); ok {
		if datasets, ok := obj.Get("datasets"); ok {
			if seq, ok := asSequence(datasets); ok {
				return trimChartShaped(obj, seq)
			}
		}
		return trimMapping(obj, maxTokens)
	}

	return value
}

func asSequence(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case nil, string, []byte, json.RawMessage:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// trimSequence keeps max(1, floor(len*maxTokens/estimate)) leading elements.
// When uneven element sizes leave the prefix over budget the cut is repeated,
// so trimming the result again is a no-op.
func trimSequence(seq []interface{}, maxTokens, estimate int) []interface{} {
	keep := proportionalKeep(len(seq), maxTokens, estimate)
	for keep > 1 {
		est := EstimateValueTokens(seq[:keep])
		if est <= maxTokens {
			break
		}
		next := proportionalKeep(keep, maxTokens, est)
		if next >= keep {
			next = keep - 1
		}
		keep = next
	}
	out := make([]interface{}, keep)
	copy(out, seq[:keep])
	return out
}

func proportionalKeep(length, maxTokens, estimate int) int {
	if length == 0 {
		return 0
	}
	factor := 0.0
	if estimate > 0 && maxTokens > 0 {
		factor = float64(maxTokens) / float64(estimate)
	}
	keep := int(math.Floor(float64(length) * factor))
	if keep < 1 {
		keep = 1
	}
	if keep > length {
		keep = length
	}
	return keep
}

func trimChartShaped(obj *OrderedMap, datasets []interface{}) *OrderedMap {
	kept := datasets
	if len(kept) > MaxChartDatasets {
		kept = kept[:MaxChartDatasets]
	}
	trimmedSets := make([]interface{}, len(kept))
	for i, ds := range kept {
		trimmedSets[i] = trimDataset(ds)
	}

	out := NewOrderedMap()
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		if k == "datasets" {
			out.Set(k, trimmedSets)
			continue
		}
		out.Set(k, v)
	}
	return out
}

func trimDataset(ds interface{}) interface{} {
	obj, ok := asOrderedMap(ds)
	if !ok {
		return ds
	}
	raw, ok := obj.Get("data")
	if !ok {
		return ds
	}
	points, ok := asSequence(raw)
	if !ok || len(points) <= MaxChartPoints {
		return ds
	}

	capped := make([]interface{}, MaxChartPoints)
	copy(capped, points[:MaxChartPoints])

	out := NewOrderedMap()
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		if k == "data" {
			v = capped
		}
		out.Set(k, v)
	}
	out.Set(MarkerTrimmed, true)
	out.Set(MarkerOriginalLength, len(points))
	return out
}

func trimMapping(obj *OrderedMap, maxTokens int) *OrderedMap {
	var dataKeys []string
	for _, k := range obj.Keys() {
		if !isMarkerKey(k) {
			dataKeys = append(dataKeys, k)
		}
	}

	kept := dataKeys
	if len(kept) > MaxMappingKeys {
		kept = kept[:MaxMappingKeys]
	}

	half := float64(maxTokens) / 2
	out := NewOrderedMap()
	for _, k := range kept {
		v, _ := obj.Get(k)
		if !isTrimStub(v) {
			if tokens := EstimateValueTokens(v); float64(tokens) > half {
				// a small value can serialize shorter than its stub
				if stub := trimStub(k, tokens); EstimateValueTokens(stub) < tokens {
					v = stub
				}
			}
		}
		out.Set(k, v)
	}

	// An already tagged object keeps its original key count.
	totalKeys := len(dataKeys)
	prev, tagged := obj.Get(MarkerTotalKeys)
	if tagged {
		if n, ok := toInt(prev); ok && n > totalKeys {
			totalKeys = n
		}
	}
	if len(dataKeys) > len(kept) || tagged {
		out.Set(MarkerTrimmed, true)
		out.Set(MarkerKeptKeys, len(kept))
		out.Set(MarkerTotalKeys, totalKeys)
	}
	return out
}

func trimStub(key string, tokens int) *OrderedMap {
	stub := NewOrderedMap()
	stub.Set(MarkerTrimmed, true)
	stub.Set(MarkerSummary, fmt.Sprintf("%s was too large (%d tokens)", key, tokens))
	return stub
}

func isTrimStub(v interface{}) bool {
	obj, ok := asOrderedMap(v)
	if !ok {
		return false
	}
	_, hasSummary := obj.Get(MarkerSummary)
	flag, _ := obj.Get(MarkerTrimmed)
	return hasSummary && flag == true
}

func isMarkerKey(k string) bool {
	switch k {
	case MarkerTrimmed, MarkerKeptKeys, MarkerTotalKeys:
		return true
	}
	return false
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
