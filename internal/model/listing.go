package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// PropertyListing represents a rental property record from the listing store.
// Records are read-only to this service; the embedding column is written only
// through the ingestion endpoint.
type PropertyListing struct {
	PropertyID   string          `json:"property_id" db:"property_id"`
	Location     string          `json:"location" db:"location"`
	Area         *string         `json:"area,omitempty" db:"area"`
	City         *string         `json:"city,omitempty" db:"city"`
	Bedrooms     *int            `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms    *int            `json:"bathrooms,omitempty" db:"bathrooms"`
	MonthlyRent  float64         `json:"monthly_rent" db:"monthly_rent"`
	YearlyRent   float64         `json:"yearly_rent" db:"yearly_rent"`
	Sqft         *float64        `json:"sqft,omitempty" db:"sqft"`
	PropertyType *string         `json:"property_type,omitempty" db:"property_type"`
	Furnished    bool            `json:"furnished" db:"furnished"`
	Parking      bool            `json:"parking" db:"parking"`
	Amenities    JSONArray       `json:"amenities,omitempty" db:"amenities"`
	Description  *string         `json:"description,omitempty" db:"description"`
	URL          *string         `json:"url,omitempty" db:"url"`
	Embedding    pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// SearchResult is a listing annotated with its relevance score.
type SearchResult struct {
	PropertyListing
	Score float64 `json:"score" db:"score"`
}

// PropertyRef is the slim reference kept in conversation state for a run of
// search results. Insertion order is display order, which is what makes
// "the first one" resolvable on later turns.
type PropertyRef struct {
	PropertyID string  `json:"property_id"`
	Location   string  `json:"location"`
	Bedrooms   *int    `json:"bedrooms,omitempty"`
	YearlyRent float64 `json:"yearly_rent"`
}

// Ref returns the state-sized reference for a listing.
func (l *PropertyListing) Ref() PropertyRef {
	return PropertyRef{
		PropertyID: l.PropertyID,
		Location:   l.Location,
		Bedrooms:   l.Bedrooms,
		YearlyRent: l.YearlyRent,
	}
}

// JSONArray represents a JSONB string-array column.
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}

// EmbeddingItem is a single embedding row in a batch ingestion request.
type EmbeddingItem struct {
	PropertyID string    `json:"property_id" binding:"required"`
	Embedding  []float32 `json:"embedding" binding:"required"`
	Text       string    `json:"text,omitempty"`
}

// EmbeddingBatchRequest represents a batch embedding update request.
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingBatchResponse reports the outcome of a batch update.
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
