package ai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"camclassify/internal/models"
)

var (
	// ErrModelLoad is returned when the model cannot be fetched or parsed.
	ErrModelLoad = errors.New("model load failed")

	// ErrInference is returned when a forward pass fails or yields malformed output.
	ErrInference = errors.New("inference failed")
)

// Classifier runs the binary image model.
type Classifier interface {
	// LoadModel loads the model once. Later calls are no-ops.
	LoadModel(ctx context.Context) error
	// Classify runs one forward pass over t.
	Classify(ctx context.Context, t *Tensor) (models.Probabilities, error)
	Close() error
}

// ProbabilitiesFromOutput validates a raw model output vector. It must hold
// exactly two finite values within [0,1].
func ProbabilitiesFromOutput(out []float32) (models.Probabilities, error) {
	if len(out) != 2 {
		return models.Probabilities{}, fmt.Errorf("%w: expected 2 outputs, got %d", ErrInference, len(out))
	}

	for i, v := range out {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
			return models.Probabilities{}, fmt.Errorf("%w: output %d out of range: %v", ErrInference, i, v)
		}
	}

	return models.Probabilities{Class1: float64(out[0]), Class2: float64(out[1])}, nil
}

// Interpret maps probabilities to a class label. Ties go to Class 2.
func Interpret(p models.Probabilities) models.PredictedClass {
	return p.Class()
}
