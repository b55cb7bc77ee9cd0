package sqlite

import (
	"database/sql"
	"fmt"

	"camclassify/internal/models"
)

// PredictionRepository implements repository.PredictionRepository for SQLite.
type PredictionRepository struct {
	db *DB
}

// NewPredictionRepository creates a new SQLite prediction repository.
func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Insert adds a new prediction record and returns its key.
func (r *PredictionRepository) Insert(p *models.Prediction) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var class1, class2 sql.NullFloat64
	if p.Probabilities != nil {
		class1 = sql.NullFloat64{Float64: p.Probabilities.Class1, Valid: true}
		class2 = sql.NullFloat64{Float64: p.Probabilities.Class2, Valid: true}
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO predictions (time, predicted_class, class1_probability, class2_probability)
		VALUES (?, ?, ?, ?)
	`, p.Time, string(p.PredictedClass), class1, class2)
	if err != nil {
		return 0, fmt.Errorf("failed to insert prediction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read prediction id: %w", err)
	}
	p.ID = id
	return id, nil
}

// GetAll returns every prediction ordered by key.
func (r *PredictionRepository) GetAll() ([]models.Prediction, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, time, predicted_class, class1_probability, class2_probability
		FROM predictions ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	predictions := make([]models.Prediction, 0)
	for rows.Next() {
		var (
			p              models.Prediction
			class          string
			class1, class2 sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.Time, &class, &class1, &class2); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.PredictedClass = models.PredictedClass(class)
		if class1.Valid && class2.Valid {
			p.Probabilities = &models.Probabilities{Class1: class1.Float64, Class2: class2.Float64}
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}

	return predictions, nil
}

// Count returns the number of stored predictions.
func (r *PredictionRepository) Count() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return count, nil
}

// DeleteAll removes all predictions in one statement.
func (r *PredictionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM predictions`); err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *PredictionRepository) Close() error {
	return r.db.Close()
}
