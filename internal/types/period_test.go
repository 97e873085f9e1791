package types

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestThresholdTrialMarshalsFiniteObjective(t *testing.T) {
	trial := ThresholdTrial{Threshold: 65, ObjectiveValue: 1.25}

	data, err := json.Marshal(trial)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"objective_value":1.25`) {
		t.Errorf("finite objective must serialize as a number: %s", data)
	}
}

func TestThresholdTrialInfiniteObjectiveRoundTrip(t *testing.T) {
	trial := ThresholdTrial{
		Threshold:      65,
		ObjectiveValue: math.Inf(1),
		Result:         BacktestResult{ProfitFactor: InfiniteProfitFactor()},
	}

	data, err := json.Marshal(trial)
	if err != nil {
		t.Fatalf("an infinite objective must still serialize: %v", err)
	}
	if !strings.Contains(string(data), `"objective_value":"Infinity"`) {
		t.Errorf("expected the Infinity sentinel, got %s", data)
	}

	var parsed ThresholdTrial
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsInf(parsed.ObjectiveValue, 1) {
		t.Errorf("objective value lost the infinity on round trip: %v", parsed.ObjectiveValue)
	}
	if parsed.Threshold != 65 {
		t.Errorf("threshold = %v, expected 65", parsed.Threshold)
	}
}

func TestThresholdTrialNegativeInfiniteObjective(t *testing.T) {
	data, err := json.Marshal(ThresholdTrial{ObjectiveValue: math.Inf(-1)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"objective_value":"-Infinity"`) {
		t.Errorf("expected the -Infinity sentinel, got %s", data)
	}
}
