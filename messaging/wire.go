package messaging

// Wire shapes for the WhatsApp Business Cloud API. The sender marshals these
// as the request body of POST /{phone_id}/messages.

// WirePayload is the top-level Cloud API message payload.
type WirePayload struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	PreviewURL       bool             `json:"preview_url,omitempty"`
	Text             *WireText        `json:"text,omitempty"`
	Interactive      *WireInteractive `json:"interactive,omitempty"`
}

// WireText is the text body object.
type WireText struct {
	Body string `json:"body"`
}

// WireInteractive is the interactive object for button and list messages.
type WireInteractive struct {
	Type   string      `json:"type"`
	Body   *WireBody   `json:"body"`
	Action *WireAction `json:"action"`
}

// WireBody wraps the interactive body text.
type WireBody struct {
	Text string `json:"text"`
}

// WireAction carries reply buttons or list sections.
type WireAction struct {
	Buttons  []WireButton  `json:"buttons,omitempty"`
	Button   string        `json:"button,omitempty"`
	Sections []WireSection `json:"sections,omitempty"`
}

// WireButton is a single reply button.
type WireButton struct {
	Type  string    `json:"type"`
	Reply WireReply `json:"reply"`
}

// WireReply identifies the button.
type WireReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// WireSection is a list section with its rows.
type WireSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []WireRow `json:"rows"`
}

// WireRow is a selectable list row.
type WireRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ToWire converts an OutgoingMessage to its Cloud API payload for the given
// recipient. The message is assumed to have passed Validate.
func ToWire(to string, m OutgoingMessage) WirePayload {
	p := WirePayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             string(m.Type),
	}
	switch m.Type {
	case MessageTypeText:
		p.Text = &WireText{Body: m.Text}
	case MessageTypeInteractive:
		wi := &WireInteractive{
			Type: string(m.Interactive.Kind),
			Body: &WireBody{Text: m.Interactive.Body},
		}
		switch m.Interactive.Kind {
		case InteractiveButton:
			action := &WireAction{}
			for _, b := range m.Interactive.Buttons {
				action.Buttons = append(action.Buttons, WireButton{
					Type:  "reply",
					Reply: WireReply{ID: b.ID, Title: b.Title},
				})
			}
			wi.Action = action
		case InteractiveList:
			action := &WireAction{Button: "Ver opciones"}
			for _, s := range m.Interactive.Sections {
				ws := WireSection{Title: s.Title}
				for _, r := range s.Rows {
					ws.Rows = append(ws.Rows, WireRow{ID: r.ID, Title: r.Title, Description: r.Description})
				}
				action.Sections = append(action.Sections, ws)
			}
			wi.Action = action
		}
		p.Interactive = wi
	}
	return p
}
