package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/charlahq/charla/orchestrator"
	"github.com/charlahq/charla/session"
)

// orchestratedTTL bounds the ingress de-duplication marker.
const orchestratedTTL = time.Hour

// WhatsApp Business webhook envelope, narrowed to the fields the ingress
// consumes.
type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
	Image    *webhookMedia `json:"image"`
	Video    *webhookMedia `json:"video"`
	Document *webhookMedia `json:"document"`
	Audio    *struct {
		ID string `json:"id"`
	} `json:"audio"`
}

type webhookMedia struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

// verifyWebhook answers the hub.challenge handshake the Cloud API sends when
// the webhook URL is registered.
func (s *Server) verifyWebhook(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.profile.WhatsAppVerifyToken {
		return c.String(http.StatusOK, challenge)
	}
	return c.NoContent(http.StatusForbidden)
}

// receiveWebhook accepts the provider callback, enqueues the contained
// messages and returns 200 immediately. The provider retries on anything
// else, so parse failures are answered 200 and only logged.
func (s *Server) receiveWebhook(c echo.Context) error {
	var envelope webhookEnvelope
	if err := c.Bind(&envelope); err != nil {
		slog.Warn("webhook: unparseable payload", "error", err.Error())
		return c.NoContent(http.StatusOK)
	}

	ctx := c.Request().Context()
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			tenantID := change.Value.Metadata.PhoneNumberID
			for _, msg := range change.Value.Messages {
				if msg.ID == "" || msg.From == "" {
					continue
				}
				key := session.OrchestratedKey(msg.ID)
				seen, err := s.store.Exists(ctx, key)
				if err != nil {
					slog.Warn("webhook: dedup check failed", "message_id", msg.ID, "error", err.Error())
				}
				if seen {
					continue
				}
				if err := s.store.SetEx(ctx, key, orchestratedTTL, []byte("1")); err != nil {
					slog.Warn("webhook: dedup marker failed", "message_id", msg.ID, "error", err.Error())
				}
				s.dispatch(buildRecord(tenantID, msg))
			}
		}
	}
	return c.NoContent(http.StatusOK)
}

// buildRecord narrows a provider message to the neutral record the turn
// builder consumes.
func buildRecord(tenantID string, msg webhookMessage) orchestrator.MessageRecord {
	rec := orchestrator.MessageRecord{
		TenantID:  tenantID,
		WaID:      msg.From,
		MessageID: msg.ID,
		Type:      msg.Type,
		Timestamp: parseTimestamp(msg.Timestamp),
	}

	switch {
	case msg.Text != nil:
		rec.Body = msg.Text.Body
	case msg.Interactive != nil:
		if msg.Interactive.ButtonReply != nil {
			rec.Label = msg.Interactive.ButtonReply.Title
			rec.Payload = msg.Interactive.ButtonReply.ID
		} else if msg.Interactive.ListReply != nil {
			rec.Label = msg.Interactive.ListReply.Title
			rec.Payload = msg.Interactive.ListReply.ID
		}
	case msg.Image != nil:
		rec.Caption = msg.Image.Caption
	case msg.Video != nil:
		rec.Caption = msg.Video.Caption
	case msg.Document != nil:
		rec.Caption = msg.Document.Caption
	}
	return rec
}

// parseTimestamp reads the provider's unix-seconds string, falling back to
// now on garbage.
func parseTimestamp(raw string) time.Time {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0)
	}
	return time.Now()
}
