package whatsapp

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

var ErrNoMessage = errors.New("webhook carries no message")

// Inbound is a message received from a user.
type Inbound struct {
	From        string             `json:"from"`
	Body        string             `json:"body"`
	MediaURL    string             `json:"media_url,omitempty"`
	MessageType models.MessageType `json:"message_type"`
}

// metaPayload is the nested entry/changes/value shape the Cloud API posts.
type metaPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Image    *metaMedia `json:"image"`
					Document *metaMedia `json:"document"`
					Audio    *metaMedia `json:"audio"`
					Video    *metaMedia `json:"video"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type metaMedia struct {
	ID      string `json:"id"`
	Link    string `json:"link"`
	Caption string `json:"caption"`
}

// ParseWebhook accepts either the flat {from, body, media_url, message_type}
// form or the Cloud API's nested notification and returns every message it
// carries. Status-only notifications yield ErrNoMessage.
func ParseWebhook(raw []byte) ([]Inbound, error) {
	var meta metaPayload
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	if meta.Object != "" || len(meta.Entry) > 0 {
		return fromMeta(meta)
	}

	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.From) == "" {
		return nil, ErrNoMessage
	}
	if in.MessageType == "" {
		in.MessageType = models.TextMessage
	}
	return []Inbound{in}, nil
}

func fromMeta(p metaPayload) ([]Inbound, error) {
	var out []Inbound
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				in := Inbound{From: m.From, MessageType: models.MessageType(m.Type), Body: m.Text.Body}
				if in.MessageType == "" {
					in.MessageType = models.TextMessage
				}
				for _, media := range []*metaMedia{m.Image, m.Document, m.Audio, m.Video} {
					if media == nil {
						continue
					}
					in.MediaURL = media.Link
					if in.MediaURL == "" {
						in.MediaURL = media.ID
					}
					if in.Body == "" {
						in.Body = media.Caption
					}
				}
				out = append(out, in)
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMessage
	}
	return out, nil
}
