package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// TimeLayout is the ISO-8601 layout of Prediction.Time (UTC, millisecond precision).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// PredictedClass is the label chosen for a frame.
type PredictedClass string

const (
	ClassOne PredictedClass = "Class 1"
	ClassTwo PredictedClass = "Class 2"
)

// Valid reports whether c is one of the two known classes.
func (c PredictedClass) Valid() bool {
	return c == ClassOne || c == ClassTwo
}

// ErrInvalidPrediction is returned when a stored record does not have the expected shape.
var ErrInvalidPrediction = errors.New("invalid prediction record")

// Probabilities holds the raw model output for both classes. The values are
// recorded as-is and do not have to sum to 1.
type Probabilities struct {
	Class1 float64 `json:"class1Probability"`
	Class2 float64 `json:"class2Probability"`
}

// Validate checks that both values are finite and within [0,1].
func (p Probabilities) Validate() error {
	for i, v := range []float64{p.Class1, p.Class2} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: probability %d out of range: %v", ErrInvalidPrediction, i+1, v)
		}
	}
	return nil
}

// Class returns ClassOne when Class1 is strictly greater than Class2 and
// ClassTwo otherwise, so a tie yields ClassTwo.
func (p Probabilities) Class() PredictedClass {
	if p.Class1 > p.Class2 {
		return ClassOne
	}
	return ClassTwo
}

// Prediction is one persisted classification outcome.
type Prediction struct {
	ID             int64          `json:"-"`
	Time           string         `json:"time"`
	PredictedClass PredictedClass `json:"predictedClass"`
	Probabilities  *Probabilities `json:"probabilities,omitempty"`
}

// NewPrediction builds the record for one successful classification at now.
func NewPrediction(now time.Time, probs Probabilities) Prediction {
	p := probs
	return Prediction{
		Time:           now.UTC().Format(TimeLayout),
		PredictedClass: probs.Class(),
		Probabilities:  &p,
	}
}

// Timestamp parses Time.
func (p Prediction) Timestamp() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, p.Time)
}

// Validate checks the record shape. Records written before probabilities
// were persisted carry no probabilities and are still valid.
func (p Prediction) Validate() error {
	if !p.PredictedClass.Valid() {
		return fmt.Errorf("%w: unknown class %q", ErrInvalidPrediction, p.PredictedClass)
	}
	if _, err := p.Timestamp(); err != nil {
		return fmt.Errorf("%w: bad time %q", ErrInvalidPrediction, p.Time)
	}
	if p.Probabilities != nil {
		return p.Probabilities.Validate()
	}
	return nil
}

// UnmarshalJSON accepts both the current "probabilities" key and the legacy
// "exactProbabilities" key.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time               string         `json:"time"`
		PredictedClass     PredictedClass `json:"predictedClass"`
		Probabilities      *Probabilities `json:"probabilities"`
		ExactProbabilities *Probabilities `json:"exactProbabilities"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Time = raw.Time
	p.PredictedClass = raw.PredictedClass
	p.Probabilities = raw.Probabilities
	if p.Probabilities == nil {
		p.Probabilities = raw.ExactProbabilities
	}
	return nil
}
