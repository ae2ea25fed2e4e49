package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

type MessageType string

const (
	TextMessage     MessageType = "text"
	ImageMessage    MessageType = "image"
	DocumentMessage MessageType = "document"
	AudioMessage    MessageType = "audio"
	VideoMessage    MessageType = "video"
	LocationMessage MessageType = "location"
)

func (t MessageType) Valid() bool {
	switch t {
	case TextMessage, ImageMessage, DocumentMessage, AudioMessage, VideoMessage, LocationMessage:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// WhatsAppMessage is one entry of the append-only message ledger.
type WhatsAppMessage struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"user_id,omitempty" json:"userId,omitempty"`
	PhoneNumber     string              `bson:"phone_number" json:"phoneNumber"`
	Direction       Direction           `bson:"direction" json:"direction"`
	MessageType     MessageType         `bson:"message_type" json:"messageType"`
	Content         string              `bson:"content" json:"content"`
	MediaURL        string              `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	Status          DeliveryStatus      `bson:"status" json:"status"`
	ProviderID      string              `bson:"provider_id,omitempty" json:"providerId,omitempty"`
	RelatedQuery    *primitive.ObjectID `bson:"related_query,omitempty" json:"relatedQuery,omitempty"`
	RelatedDocument *primitive.ObjectID `bson:"related_document,omitempty" json:"relatedDocument,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
}
