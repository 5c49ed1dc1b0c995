// Package messaging defines the outgoing message variants the orchestration
// core hands to the WhatsApp egress layer, together with the platform length
// limits that are validated before handover.
package messaging

import (
	"fmt"
	"unicode/utf8"
)

// MessageType discriminates the OutgoingMessage variants.
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeInteractive MessageType = "interactive"
)

// InteractiveKind discriminates the interactive sub-variants.
type InteractiveKind string

const (
	InteractiveButton InteractiveKind = "button"
	InteractiveList   InteractiveKind = "list"
)

// WhatsApp Business platform limits.
const (
	MaxTextBody     = 4096
	MaxButtons      = 3
	MaxButtonTitle  = 20
	MaxListSections = 10
	MaxListRows     = 10
)

// Button is a single reply button of an interactive button message.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRow is one selectable row of a list section.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows of an interactive list message.
type ListSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

// Interactive carries the button or list payload of an interactive message.
type Interactive struct {
	Kind     InteractiveKind `json:"kind"`
	Body     string          `json:"body"`
	Buttons  []Button        `json:"buttons,omitempty"`
	Sections []ListSection   `json:"sections,omitempty"`
}

// OutgoingMessage is the tagged variant returned by agents and delivered by
// the outbound sender. Exactly one of Text / Interactive is populated
// depending on Type.
type OutgoingMessage struct {
	Type        MessageType  `json:"type"`
	Text        string       `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// NewText builds a plain text message.
func NewText(body string) OutgoingMessage {
	return OutgoingMessage{Type: MessageTypeText, Text: body}
}

// NewButtons builds an interactive button message.
func NewButtons(body string, buttons ...Button) OutgoingMessage {
	return OutgoingMessage{
		Type: MessageTypeInteractive,
		Interactive: &Interactive{
			Kind:    InteractiveButton,
			Body:    body,
			Buttons: buttons,
		},
	}
}

// NewList builds an interactive list message.
func NewList(body string, sections ...ListSection) OutgoingMessage {
	return OutgoingMessage{
		Type: MessageTypeInteractive,
		Interactive: &Interactive{
			Kind:     InteractiveList,
			Body:     body,
			Sections: sections,
		},
	}
}

// Validate enforces the platform limits on a single message.
func (m OutgoingMessage) Validate() error {
	switch m.Type {
	case MessageTypeText:
		if utf8.RuneCountInString(m.Text) > MaxTextBody {
			return fmt.Errorf("text body exceeds %d characters", MaxTextBody)
		}
		return nil
	case MessageTypeInteractive:
		if m.Interactive == nil {
			return fmt.Errorf("interactive message without payload")
		}
		return m.Interactive.validate()
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
}

func (i *Interactive) validate() error {
	if utf8.RuneCountInString(i.Body) > MaxTextBody {
		return fmt.Errorf("interactive body exceeds %d characters", MaxTextBody)
	}
	switch i.Kind {
	case InteractiveButton:
		if len(i.Buttons) == 0 || len(i.Buttons) > MaxButtons {
			return fmt.Errorf("button message must carry 1-%d buttons, got %d", MaxButtons, len(i.Buttons))
		}
		for _, b := range i.Buttons {
			if utf8.RuneCountInString(b.Title) > MaxButtonTitle {
				return fmt.Errorf("button title %q exceeds %d characters", b.Title, MaxButtonTitle)
			}
		}
	case InteractiveList:
		if len(i.Sections) == 0 || len(i.Sections) > MaxListSections {
			return fmt.Errorf("list message must carry 1-%d sections, got %d", MaxListSections, len(i.Sections))
		}
		for _, s := range i.Sections {
			if len(s.Rows) == 0 || len(s.Rows) > MaxListRows {
				return fmt.Errorf("list section %q must carry 1-%d rows, got %d", s.Title, MaxListRows, len(s.Rows))
			}
		}
	default:
		return fmt.Errorf("unknown interactive kind %q", i.Kind)
	}
	return nil
}

// ValidateAll validates a batch before handing it to the egress layer.
func ValidateAll(msgs []OutgoingMessage) error {
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// SplitText breaks a long body into text messages that each respect the
// platform limit. Splits on rune boundaries so multi-byte characters are
// never cut.
func SplitText(body string) []OutgoingMessage {
	runes := []rune(body)
	if len(runes) <= MaxTextBody {
		return []OutgoingMessage{NewText(body)}
	}
	var msgs []OutgoingMessage
	for len(runes) > 0 {
		n := MaxTextBody
		if len(runes) < n {
			n = len(runes)
		}
		msgs = append(msgs, NewText(string(runes[:n])))
		runes = runes[n:]
	}
	return msgs
}
