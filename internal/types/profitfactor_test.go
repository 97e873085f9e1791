package types

import (
	"encoding/json"
	"testing"
)

func TestProfitFactorFiniteJSON(t *testing.T) {
	pf := FiniteProfitFactor(2.5)

	data, err := json.Marshal(pf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "2.5" {
		t.Errorf("expected plain number 2.5, got %s", data)
	}

	var parsed ProfitFactor
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.IsInfinite() || parsed.Value() != 2.5 {
		t.Errorf("round trip changed %v into %v", pf, parsed)
	}
}

func TestProfitFactorInfinityRoundTrip(t *testing.T) {
	pf := InfiniteProfitFactor()

	data, err := json.Marshal(pf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"Infinity"` {
		t.Errorf(`expected "Infinity" sentinel, got %s`, data)
	}

	var parsed ProfitFactor
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !parsed.IsInfinite() {
		t.Error("infinity tag lost on round trip")
	}

	again, err := json.Marshal(parsed)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(again) != `"Infinity"` {
		t.Errorf("second serialization produced %s, expected the same sentinel", again)
	}
}

func TestProfitFactorNegativeInfinity(t *testing.T) {
	data, err := json.Marshal(NegativeInfiniteProfitFactor())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"-Infinity"` {
		t.Errorf(`expected "-Infinity" sentinel, got %s`, data)
	}

	var parsed ProfitFactor
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !parsed.IsInfinite() {
		t.Error("negative infinity tag lost on round trip")
	}
}

func TestProfitFactorRejectsUnknownSentinel(t *testing.T) {
	var pf ProfitFactor
	if err := json.Unmarshal([]byte(`"NaN"`), &pf); err == nil {
		t.Error("expected error for unknown sentinel")
	}
	if err := json.Unmarshal([]byte(`true`), &pf); err == nil {
		t.Error("expected error for non-numeric non-string value")
	}
}

func TestProfitFactorString(t *testing.T) {
	if got := FiniteProfitFactor(1.75).String(); got != "1.75" {
		t.Errorf("expected 1.75, got %s", got)
	}
	if got := InfiniteProfitFactor().String(); got != "Infinity" {
		t.Errorf("expected Infinity, got %s", got)
	}
}
