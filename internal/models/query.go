package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxQueryLength = 2000

type QueryType string

const (
	QueryLegalDefinition    QueryType = "legal_definition"
	QueryCaseLaw            QueryType = "case_law"
	QueryProceduralGuidance QueryType = "procedural_guidance"
	QueryGeneral            QueryType = "general"
)

func (t QueryType) Valid() bool {
	switch t {
	case QueryLegalDefinition, QueryCaseLaw, QueryProceduralGuidance, QueryGeneral:
		return true
	}
	return false
}

// Query is a free-text legal question and its processing record. Answer,
// References and CaseLaws are only set once Status is completed; Error only
// once it is failed.
type Query struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	QueryText      string             `bson:"query_text" json:"queryText"`
	QueryType      QueryType          `bson:"query_type" json:"queryType"`
	Keywords       []string           `bson:"keywords,omitempty" json:"keywords,omitempty"`
	Status         Status             `bson:"status" json:"status"`
	Answer         string             `bson:"answer,omitempty" json:"answer,omitempty"`
	References     []Reference        `bson:"references,omitempty" json:"references"`
	CaseLaws       []CaseLaw          `bson:"case_laws,omitempty" json:"caseLaws"`
	ProcessingTime float64            `bson:"processing_time" json:"processingTime"`
	Source         Source             `bson:"source" json:"source"`
	Error          string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}

// QueryResult is what a responder produces for a completed query.
type QueryResult struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
	CaseLaws   []CaseLaw   `json:"caseLaws"`
}
