// Package whatsapp talks to the WhatsApp Business Cloud API: outbound text,
// template and media messages, phone formatting and inbound webhook parsing.
package whatsapp

import (
	"context"
	"fmt"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// Client sends messages and returns the provider message id.
type Client interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendTemplate(ctx context.Context, to, name string, components []any) (string, error)
	SendMedia(ctx context.Context, to string, mediaType models.MessageType, link, caption string) (string, error)
}

const templateLanguage = "en_US"

type textBody struct {
	Body string `json:"body"`
}

type templateLang struct {
	Code string `json:"code"`
}

type templateBody struct {
	Name       string       `json:"name"`
	Language   templateLang `json:"language"`
	Components []any        `json:"components,omitempty"`
}

type mediaBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// outbound is the Cloud API message payload. Exactly one of the content
// fields is set, matching Type.
type outbound struct {
	MessagingProduct string        `json:"messaging_product"`
	RecipientType    string        `json:"recipient_type"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *textBody     `json:"text,omitempty"`
	Template         *templateBody `json:"template,omitempty"`
	Image            *mediaBody    `json:"image,omitempty"`
	Document         *mediaBody    `json:"document,omitempty"`
	Audio            *mediaBody    `json:"audio,omitempty"`
	Video            *mediaBody    `json:"video,omitempty"`
}

func newOutbound(to, kind string) outbound {
	return outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               FormatPhoneNumber(to),
		Type:             kind,
	}
}

func textMessage(to, body string) outbound {
	m := newOutbound(to, string(models.TextMessage))
	m.Text = &textBody{Body: body}
	return m
}

func templateMessage(to, name string, components []any) outbound {
	m := newOutbound(to, "template")
	m.Template = &templateBody{Name: name, Language: templateLang{Code: templateLanguage}, Components: components}
	return m
}

func mediaMessage(to string, mediaType models.MessageType, link, caption string) (outbound, error) {
	m := newOutbound(to, string(mediaType))
	body := &mediaBody{Link: link, Caption: caption}
	switch mediaType {
	case models.ImageMessage:
		m.Image = body
	case models.DocumentMessage:
		m.Document = body
	case models.AudioMessage:
		m.Audio = body
	case models.VideoMessage:
		m.Video = body
	default:
		return outbound{}, fmt.Errorf("unsupported media type %q", mediaType)
	}
	return m, nil
}
