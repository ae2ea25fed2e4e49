package models

import "time"

// Settings are the admin-tunable runtime knobs. A single document is stored.
type Settings struct {
	WhatsAppNumber            string    `bson:"whatsapp_number" json:"whatsappNumber"`
	WhatsAppEnabled           bool      `bson:"whatsapp_enabled" json:"whatsappEnabled"`
	QueryProcessingTimeout    int       `bson:"query_processing_timeout" json:"queryProcessingTimeout" validate:"min=1,max=3600"`
	DocumentProcessingTimeout int       `bson:"document_processing_timeout" json:"documentProcessingTimeout" validate:"min=1,max=3600"`
	MaxQueryLength            int       `bson:"max_query_length" json:"maxQueryLength" validate:"min=1,max=2000"`
	MaxDocumentSize           int       `bson:"max_document_size" json:"maxDocumentSize" validate:"min=1,max=100"`
	AllowedDocumentTypes      []string  `bson:"allowed_document_types" json:"allowedDocumentTypes" validate:"min=1,dive,required"`
	MaintenanceMode           bool      `bson:"maintenance_mode" json:"maintenanceMode"`
	NotificationsEnabled      bool      `bson:"notifications_enabled" json:"notificationsEnabled"`
	UpdatedAt                 time.Time `bson:"updated_at" json:"updatedAt"`
}

func DefaultSettings() Settings {
	return Settings{
		WhatsAppEnabled:           true,
		QueryProcessingTimeout:    120,
		DocumentProcessingTimeout: 300,
		MaxQueryLength:            MaxQueryLength,
		MaxDocumentSize:           10,
		AllowedDocumentTypes:      []string{"pdf", "docx", "doc", "txt", "jpg", "jpeg", "png"},
		NotificationsEnabled:      true,
	}
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalQueries       int64   `json:"totalQueries"`
	ActiveUsers        int64   `json:"activeUsers"`
	DocumentsProcessed int64   `json:"documentsProcessed"`
	SuccessRate        float64 `json:"successRate"`
}
