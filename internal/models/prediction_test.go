package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewPrediction_ClassSelection(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		probs    Probabilities
		expected PredictedClass
	}{
		{"class one wins", Probabilities{Class1: 0.9, Class2: 0.1}, ClassOne},
		{"class two wins", Probabilities{Class1: 0.2, Class2: 0.8}, ClassTwo},
		{"tie goes to class two", Probabilities{Class1: 0.5, Class2: 0.5}, ClassTwo},
		{"both zero", Probabilities{}, ClassTwo},
		{"barely above", Probabilities{Class1: 0.5000001, Class2: 0.5}, ClassOne},
		{"no sum constraint", Probabilities{Class1: 0.9, Class2: 0.9}, ClassTwo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPrediction(now, tt.probs)
			if p.PredictedClass != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, p.PredictedClass)
			}
			if p.Probabilities == nil || *p.Probabilities != tt.probs {
				t.Errorf("Probabilities not recorded as-is: %+v", p.Probabilities)
			}
		})
	}
}

func TestNewPrediction_TimeFormat(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	now := time.Date(2025, 6, 15, 16, 30, 5, 123456789, loc)

	p := NewPrediction(now, Probabilities{Class1: 1})
	if p.Time != "2025-06-15T14:30:05.123Z" {
		t.Errorf("Unexpected time %q", p.Time)
	}

	ts, err := p.Timestamp()
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if !ts.Equal(now.Truncate(time.Millisecond)) {
		t.Errorf("Expected %v, got %v", now.Truncate(time.Millisecond), ts)
	}
}

func TestPrediction_Validate(t *testing.T) {
	valid := NewPrediction(time.Now(), Probabilities{Class1: 0.3, Class2: 0.7})
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid record, got %v", err)
	}

	noProbs := Prediction{Time: "2024-01-01T00:00:00.000Z", PredictedClass: ClassOne}
	if err := noProbs.Validate(); err != nil {
		t.Errorf("Expected record without probabilities to be valid, got %v", err)
	}

	invalid := []Prediction{
		{Time: "2024-01-01T00:00:00.000Z", PredictedClass: "Class 3"},
		{Time: "yesterday", PredictedClass: ClassOne},
		{Time: "2024-01-01T00:00:00.000Z", PredictedClass: ClassOne, Probabilities: &Probabilities{Class1: 1.5}},
		{Time: "2024-01-01T00:00:00.000Z", PredictedClass: ClassOne, Probabilities: &Probabilities{Class2: math.NaN()}},
	}
	for i, p := range invalid {
		if err := p.Validate(); !errors.Is(err, ErrInvalidPrediction) {
			t.Errorf("record %d: expected ErrInvalidPrediction, got %v", i, err)
		}
	}
}

func TestPrediction_MarshalJSON(t *testing.T) {
	p := Prediction{
		ID:             42,
		Time:           "2024-01-01T00:00:00.000Z",
		PredictedClass: ClassOne,
		Probabilities:  &Probabilities{Class1: 0.75, Class2: 0.25},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"time":"2024-01-01T00:00:00.000Z","predictedClass":"Class 1","probabilities":{"class1Probability":0.75,"class2Probability":0.25}}`
	if string(data) != expected {
		t.Errorf("Expected %s, got %s", expected, data)
	}

	p.Probabilities = nil
	data, err = json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"time":"2024-01-01T00:00:00.000Z","predictedClass":"Class 1"}` {
		t.Errorf("Expected probabilities to be omitted, got %s", data)
	}
}

func TestPrediction_UnmarshalLegacyKey(t *testing.T) {
	legacy := `{"time":"2024-01-01T00:00:00.000Z","predictedClass":"Class 2","exactProbabilities":{"class1Probability":0.1,"class2Probability":0.9}}`

	var p Prediction
	if err := json.Unmarshal([]byte(legacy), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Probabilities == nil || p.Probabilities.Class2 != 0.9 {
		t.Fatalf("Expected legacy probabilities to be read, got %+v", p.Probabilities)
	}
	if p.PredictedClass != ClassTwo {
		t.Errorf("Expected Class 2, got %s", p.PredictedClass)
	}
}
