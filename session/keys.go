package session

import "fmt"

// Key templates used by the core. These four are the binding store layout;
// nothing else writes to the store.

// SessionKey is the key holding the session JSON.
func SessionKey(tenantID, waID string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, waID)
}

// LockKey is the per-session mutex key.
func LockKey(tenantID, waID string) string {
	return SessionKey(tenantID, waID) + ":lock"
}

// ProcessedKey is the idempotency marker for a handled message.
func ProcessedKey(messageID string) string {
	return "turn:processed:" + messageID
}

// OrchestratedKey is the ingress de-duplication marker for a provider
// message that has already been enqueued.
func OrchestratedKey(messageID string) string {
	return "orchestrated:" + messageID
}
