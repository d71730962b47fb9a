package domain

import "encoding/json"

// SpendingModel is a spending plan from the MoneyEZ backend catalog.
// Raw keeps the backend's full JSON object for prompt rendering.
type SpendingModel struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Raw         json.RawMessage `json:"-"`
}

// Subcategory is one spending subcategory of a user.
type Subcategory struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	CategoryName string `json:"categoryName"`
	Description  string `json:"description"`
}

// Transaction is an expense record posted to the MoneyEZ backend.
// Amount and SubcategoryCode stay nullable: the classifier reports null
// for fields it cannot determine and the backend receives them as-is.
type Transaction struct {
	UserID          string   `json:"UserId"`
	Amount          *float64 `json:"Amount"`
	SubcategoryCode *string  `json:"SubcategoryCode"`
	Description     string   `json:"Description"`
}

// ExpenseClassification is the classifier verdict for a user expense phrase.
type ExpenseClassification struct {
	Amount          *float64 `json:"amount"`
	SubcategoryCode *string  `json:"subcategory_code"`
}

// QAPair is one question/answer of the user profile questionnaire.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Suggestion is the spending model recommendation for a user profile.
type Suggestion struct {
	RecommendedModel  SpendingModel
	AlternativeModels []SpendingModel
	Reasoning         string
}
