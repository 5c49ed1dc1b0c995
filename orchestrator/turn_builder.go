package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/charlahq/charla/conversation"
)

// MessageRecord is the provider-neutral view of one inbound message as the
// ingress layer hands it over, before it is narrowed to a Turn.
type MessageRecord struct {
	TenantID      string
	WaID          string
	MessageID     string
	Type          string // text, interactive, audio, image, video, document, sticker, location, contacts
	Body          string // text body
	Caption       string // media caption
	Label         string // interactive reply title
	Payload       string // interactive reply id
	Transcription string // audio transcription when available
	Timestamp     time.Time
}

// placeholderKinds are the media types rendered as a bracketed marker so the
// router and agents still have something to classify.
var placeholderKinds = map[string]string{
	"image":    "Image",
	"video":    "Video",
	"document": "Document",
	"sticker":  "Sticker",
	"location": "Location",
	"contacts": "Contact",
}

// BuildTurn narrows a provider message to the canonical Turn. Every message
// type yields non-empty text.
func BuildTurn(rec MessageRecord) conversation.Turn {
	turn := conversation.Turn{
		TenantID:  rec.TenantID,
		WaID:      rec.WaID,
		MessageID: rec.MessageID,
		Timestamp: conversation.Timestamp(rec.Timestamp),
	}

	switch rec.Type {
	case "text":
		turn.Text = rec.Body
	case "interactive":
		turn.Text = rec.Label
		if turn.Text == "" {
			turn.Text = rec.Payload
		}
		turn.Payload = rec.Payload
	case "audio":
		if rec.Transcription != "" {
			turn.Text = rec.Transcription
		} else {
			turn.Text = "[Audio message]"
		}
	default:
		if rec.Caption != "" {
			turn.Text = rec.Caption
		} else if kind, ok := placeholderKinds[rec.Type]; ok {
			turn.Text = fmt.Sprintf("[%s message]", kind)
		} else {
			turn.Text = fmt.Sprintf("[%s message]", strings.TrimSpace(rec.Type))
		}
	}
	return turn
}
