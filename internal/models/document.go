package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

type DocumentType string

const (
	DocChargeSheet     DocumentType = "charge_sheet"
	DocCourtOrder      DocumentType = "court_order"
	DocBailApplication DocumentType = "bail_application"
	DocAppeal          DocumentType = "appeal"
	DocAffidavit       DocumentType = "affidavit"
	DocLegalNotice     DocumentType = "legal_notice"
	DocOther           DocumentType = "other"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocChargeSheet, DocCourtOrder, DocBailApplication, DocAppeal, DocAffidavit, DocLegalNotice, DocOther:
		return true
	}
	return false
}

type FileInfo struct {
	URL       string `bson:"url,omitempty" json:"fileUrl,omitempty"`
	Key       string `bson:"key,omitempty" json:"-"`
	Name      string `bson:"name,omitempty" json:"fileName,omitempty"`
	Type      string `bson:"type,omitempty" json:"fileType,omitempty"`
	Size      int64  `bson:"size" json:"fileSize"`
	Pages     int    `bson:"pages,omitempty" json:"pages,omitempty"`
	Thumbnail string `bson:"thumbnail,omitempty" json:"thumbnailUrl,omitempty"`
}

// Document is an uploaded legal document and its analysis record. Same
// lifecycle rules as Query.
type Document struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	Title             string             `bson:"title" json:"title"`
	DocumentType      DocumentType       `bson:"document_type" json:"documentType"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	File              FileInfo           `bson:"file" json:"file"`
	Status            Status             `bson:"status" json:"status"`
	Analysis          string             `bson:"analysis,omitempty" json:"analysis,omitempty"`
	Recommendations   []string           `bson:"recommendations,omitempty" json:"recommendations"`
	CaseLawReferences []CaseLaw          `bson:"case_law_references,omitempty" json:"caseLawReferences"`
	ProcessingTime    float64            `bson:"processing_time" json:"processingTime"`
	Source            Source             `bson:"source" json:"source"`
	Error             string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}

// DocumentResult is what the document responder produces.
type DocumentResult struct {
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
}
