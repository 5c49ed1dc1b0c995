package messaging

import (
	"strings"
	"testing"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"empty body", "", false},
		{"short body", "hola", false},
		{"exactly at limit", strings.Repeat("a", MaxTextBody), false},
		{"one over limit", strings.Repeat("a", MaxTextBody+1), true},
		{"multibyte at limit", strings.Repeat("ñ", MaxTextBody), false},
		{"multibyte over limit", strings.Repeat("ñ", MaxTextBody+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewText(tt.body).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateButtons(t *testing.T) {
	mkButtons := func(n int) []Button {
		var out []Button
		for i := 0; i < n; i++ {
			out = append(out, Button{ID: "b", Title: "Ok"})
		}
		return out
	}

	tests := []struct {
		name    string
		msg     OutgoingMessage
		wantErr bool
	}{
		{"one button", NewButtons("Elige", mkButtons(1)...), false},
		{"three buttons", NewButtons("Elige", mkButtons(3)...), false},
		{"four buttons", NewButtons("Elige", mkButtons(4)...), true},
		{"zero buttons", NewButtons("Elige"), true},
		{"title at limit", NewButtons("Elige", Button{ID: "b", Title: strings.Repeat("x", MaxButtonTitle)}), false},
		{"title over limit", NewButtons("Elige", Button{ID: "b", Title: strings.Repeat("x", MaxButtonTitle+1)}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateList(t *testing.T) {
	mkSection := func(rows int) ListSection {
		s := ListSection{Title: "Opciones"}
		for i := 0; i < rows; i++ {
			s.Rows = append(s.Rows, ListRow{ID: "r", Title: "Fila"})
		}
		return s
	}

	tests := []struct {
		name    string
		msg     OutgoingMessage
		wantErr bool
	}{
		{"one section one row", NewList("Mira", mkSection(1)), false},
		{"ten rows", NewList("Mira", mkSection(10)), false},
		{"eleven rows", NewList("Mira", mkSection(11)), true},
		{"empty section", NewList("Mira", ListSection{Title: "Vacia"}), true},
		{"no sections", NewList("Mira"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsUnknownType(t *testing.T) {
	msg := OutgoingMessage{Type: "sticker"}
	if err := msg.Validate(); err == nil {
		t.Error("expected error for unknown type")
	}
	msg = OutgoingMessage{Type: MessageTypeInteractive}
	if err := msg.Validate(); err == nil {
		t.Error("expected error for interactive without payload")
	}
}

func TestSplitText(t *testing.T) {
	t.Run("short text stays whole", func(t *testing.T) {
		msgs := SplitText("hola")
		if len(msgs) != 1 || msgs[0].Text != "hola" {
			t.Fatalf("expected single message, got %v", msgs)
		}
	})

	t.Run("limit plus one splits in two", func(t *testing.T) {
		body := strings.Repeat("a", MaxTextBody+1)
		msgs := SplitText(body)
		if len(msgs) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(msgs))
		}
		if len(msgs[0].Text) != MaxTextBody || len(msgs[1].Text) != 1 {
			t.Errorf("unexpected chunk sizes: %d and %d", len(msgs[0].Text), len(msgs[1].Text))
		}
	})

	t.Run("multibyte runes never cut", func(t *testing.T) {
		body := strings.Repeat("ñ", MaxTextBody+5)
		for _, msg := range SplitText(body) {
			if strings.Contains(msg.Text, "�") {
				t.Error("chunk contains a replacement rune")
			}
			if err := msg.Validate(); err != nil {
				t.Errorf("chunk fails validation: %v", err)
			}
		}
	})

	t.Run("chunks reassemble to the original", func(t *testing.T) {
		body := strings.Repeat("abcé", 3000)
		var sb strings.Builder
		for _, msg := range SplitText(body) {
			sb.WriteString(msg.Text)
		}
		if sb.String() != body {
			t.Error("reassembled chunks differ from the original body")
		}
	})
}
