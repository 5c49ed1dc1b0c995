package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charlahq/charla/messaging"
)

// graphStub records every Cloud API call and replies with scripted statuses.
type graphStub struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []map[string]any
	statuses []int
}

func (g *graphStub) handler(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	json.Unmarshal(raw, &body)
	g.requests = append(g.requests, r)
	g.bodies = append(g.bodies, body)

	status := http.StatusOK
	if len(g.statuses) > 0 {
		status = g.statuses[0]
		g.statuses = g.statuses[1:]
	}
	w.WriteHeader(status)
	w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
}

func newStubSender(t *testing.T, statuses ...int) (*Sender, *graphStub) {
	t.Helper()
	stub := &graphStub{statuses: statuses}
	ts := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(ts.Close)
	return NewSender(SenderConfig{
		Token:   "tok-123",
		PhoneID: "phone-1",
		BaseURL: ts.URL,
	}), stub
}

func TestSenderWireShapeAndAuth(t *testing.T) {
	sender, stub := newStubSender(t)

	err := sender.Send(context.Background(), "573001112233", []messaging.OutgoingMessage{
		messaging.NewText("Hola!"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(stub.requests) != 1 {
		t.Fatalf("calls: %d", len(stub.requests))
	}
	req := stub.requests[0]
	if req.Header.Get("Authorization") != "Bearer tok-123" {
		t.Errorf("auth header: %q", req.Header.Get("Authorization"))
	}
	if !strings.HasSuffix(req.URL.Path, "/phone-1/messages") {
		t.Errorf("path: %q", req.URL.Path)
	}

	body := stub.bodies[0]
	if body["messaging_product"] != "whatsapp" || body["to"] != "573001112233" {
		t.Errorf("wire body: %v", body)
	}
	text, _ := body["text"].(map[string]any)
	if text["body"] != "Hola!" {
		t.Errorf("text body: %v", body)
	}
}

func TestSenderDeliversBatchInOrder(t *testing.T) {
	sender, stub := newStubSender(t)

	err := sender.Send(context.Background(), "57300", []messaging.OutgoingMessage{
		messaging.NewText("primero"),
		messaging.NewText("segundo"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(stub.bodies) != 2 {
		t.Fatalf("calls: %d", len(stub.bodies))
	}
	first, _ := stub.bodies[0]["text"].(map[string]any)
	second, _ := stub.bodies[1]["text"].(map[string]any)
	if first["body"] != "primero" || second["body"] != "segundo" {
		t.Errorf("order: %v then %v", first, second)
	}
}

func TestSenderRejectsInvalidBatchBeforePosting(t *testing.T) {
	sender, stub := newStubSender(t)

	err := sender.Send(context.Background(), "57300", []messaging.OutgoingMessage{
		messaging.NewText(strings.Repeat("x", messaging.MaxTextBody+1)),
	})
	if err == nil {
		t.Fatal("oversized message accepted")
	}
	if len(stub.requests) != 0 {
		t.Errorf("invalid batch reached the wire: %d calls", len(stub.requests))
	}
}

func TestSenderRetriesTransient5xxOnce(t *testing.T) {
	sender, stub := newStubSender(t, http.StatusBadGateway, http.StatusOK)

	err := sender.Send(context.Background(), "57300", []messaging.OutgoingMessage{
		messaging.NewText("hola"),
	})
	if err != nil {
		t.Fatalf("retry did not recover: %v", err)
	}
	if len(stub.requests) != 2 {
		t.Errorf("calls: %d, want 2", len(stub.requests))
	}
}

func TestSenderDoesNotRetryClientErrors(t *testing.T) {
	sender, stub := newStubSender(t, http.StatusBadRequest)

	err := sender.Send(context.Background(), "57300", []messaging.OutgoingMessage{
		messaging.NewText("hola"),
	})
	if err == nil {
		t.Fatal("4xx swallowed")
	}
	if len(stub.requests) != 1 {
		t.Errorf("calls: %d, want 1", len(stub.requests))
	}
}

func TestSenderAbortsBatchOnFailure(t *testing.T) {
	// Both attempts of the first message fail; the second must never post.
	sender, stub := newStubSender(t, http.StatusBadGateway, http.StatusBadGateway)

	err := sender.Send(context.Background(), "57300", []messaging.OutgoingMessage{
		messaging.NewText("primero"),
		messaging.NewText("segundo"),
	})
	if err == nil {
		t.Fatal("failed batch reported success")
	}
	if len(stub.requests) != 2 {
		t.Errorf("calls: %d, want 2 attempts of the first message only", len(stub.requests))
	}
}
