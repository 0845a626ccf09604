// Package models defines the core data structures for bags and collection analyses.
package models

// BagRecord is a single bag in the user's collection.
type BagRecord struct {
	// ID is the unique identifier assigned when the bag is added.
	ID string `json:"id"`
	// Image is the bag photo encoded as a data URI (data:<mime>;base64,<payload>).
	Image string `json:"image"`
	// Name is the original file name, display only.
	Name string `json:"name"`
	// Brand is free text entered by the user.
	Brand string `json:"brand,omitempty"`
	// Model is free text entered by the user.
	Model string `json:"model,omitempty"`
	// PurchasePrice is the decimal amount as entered. Empty means not entered.
	PurchasePrice string `json:"purchasePrice,omitempty"`
	// EstimatedValue is the decimal amount as entered. Empty means not entered.
	EstimatedValue string `json:"estimatedValue,omitempty"`
	// Condition is one of the Condition constants.
	Condition Condition `json:"condition"`
}

// Condition describes the wear state of a bag.
type Condition string

const (
	// ConditionExcellent is a bag in like-new state.
	ConditionExcellent Condition = "excellent"
	// ConditionGood is the default condition for new records.
	ConditionGood Condition = "good"
	// ConditionFair is a bag with visible wear.
	ConditionFair Condition = "fair"
	// ConditionPoor is a bag in need of repair or replacement.
	ConditionPoor Condition = "poor"
)

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a suggested addition to the collection.
type Recommendation struct {
	Type     string   `json:"type"`
	Reason   string   `json:"reason"`
	Priority Priority `json:"priority"`
}

// AnalysisResult is the structured critique of a collection.
type AnalysisResult struct {
	Overview        string           `json:"overview"`
	Gaps            []string         `json:"gaps"`
	Outdated        []string         `json:"outdated"`
	Recommendations []Recommendation `json:"recommendations"`
}
