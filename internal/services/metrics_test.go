package services

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordExtraction(2, []string{"parse_error"})
	m.RecordCacheLookup("memory", true)
	m.RecordShape(true, true, true, 100, true)
	m.RecordCompletion(0.5, "transport")
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordExtraction(2, []string{"parse_error", "parse_error", "empty_block"})
	m.RecordShape(true, false, true, 1200, true)
	m.RecordCompletion(1.5, "")

	if got := testutil.ToFloat64(m.ChartsExtracted); got != 2 {
		t.Errorf("charts extracted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ChartsDropped.WithLabelValues("parse_error")); got != 2 {
		t.Errorf("parse_error drops = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PayloadTrims.WithLabelValues("data")); got != 1 {
		t.Errorf("data trims = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.PayloadTrims); got != 1 {
		t.Errorf("trim series = %d, want only data", got)
	}
	if got := testutil.ToFloat64(m.PromptFits); got != 1 {
		t.Errorf("prompt fits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BudgetRejections); got != 1 {
		t.Errorf("budget rejections = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.CompletionErrors); got != 0 {
		t.Errorf("completion error series = %d, want 0", got)
	}

	// a second registration on the same registry must fail loudly
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewMetrics(reg)
}
