package dto

// PredictionStats aggregates the stored predictions.
type PredictionStats struct {
	Total  int    `json:"total"`
	Class1 int    `json:"class1"`
	Class2 int    `json:"class2"`
	First  string `json:"first,omitempty"`
	Last   string `json:"last,omitempty"`
}
