package models

// IngredientStatus is the Halal classification of a single ingredient.
type IngredientStatus string

const (
	StatusHalal    IngredientStatus = "Halal"
	StatusHaram    IngredientStatus = "Haram"
	StatusMushbooh IngredientStatus = "Mushbooh"
)

// Overall status values the classification service is known to return.
// OverallStatus is free text; these are the conventional summaries.
const (
	OverallAppearsHalal    = "Appears Halal"
	OverallContainsHaram   = "Contains Haram Ingredients"
	OverallContainsDoubt   = "Contains Doubtful Ingredients"
	OverallProductNotFound = "Product Not Found"
)

// Ingredient is one classified entry from a product's ingredient list.
type Ingredient struct {
	Name   string           `json:"name" validate:"required"`
	Status IngredientStatus `json:"status" validate:"required,oneof=Halal Haram Mushbooh"`
	Reason string           `json:"reason" validate:"required"`
}

// AnalysisResult is the structured verdict for one product. It is immutable
// once received; a new analysis fully replaces any prior result.
//
// OverallStatus == OverallProductNotFound with an empty ingredient list is a
// legitimate successful outcome for barcode lookups, not an error.
type AnalysisResult struct {
	OverallStatus     string       `json:"overallStatus" validate:"required"`
	Ingredients       []Ingredient `json:"ingredients" validate:"required,dive"`
	HalalLogoDetected bool         `json:"halalLogoDetected"`
}

// ProductNotFound reports whether the result is the not-found outcome.
func (r *AnalysisResult) ProductNotFound() bool {
	return r.OverallStatus == OverallProductNotFound
}
