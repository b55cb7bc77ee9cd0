package repository

import (
	"camclassify/internal/models"
)

// PredictionRepository defines the interface for prediction data operations.
// Keys are assigned by the backend and strictly increase in insertion order;
// they are never reused, not even after DeleteAll.
type PredictionRepository interface {
	// Create operations
	Insert(p *models.Prediction) (int64, error)

	// Read operations
	GetAll() ([]models.Prediction, error)
	Count() (int, error)

	// Delete operations
	DeleteAll() error

	Close() error
}
