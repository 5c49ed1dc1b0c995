package session

import (
	"fmt"

	"github.com/charlahq/charla/conversation"
)

// StateInvalidError reports a session that fails structural validation.
type StateInvalidError struct {
	Reason string
}

func (e *StateInvalidError) Error() string {
	return fmt.Sprintf("state invalid: %s", e.Reason)
}

// Validate enforces the structural invariants of a session: it is a mapping,
// the identity fields are set, and current_lane belongs to the closed lane
// set. Extra fields never fail validation.
func Validate(s Session) error {
	if s == nil {
		return &StateInvalidError{Reason: "session is not a mapping"}
	}
	for _, key := range []string{FieldTenantID, FieldWaID} {
		v, ok := s[key].(string)
		if !ok || v == "" {
			return &StateInvalidError{Reason: fmt.Sprintf("missing required field %q", key)}
		}
	}
	lane, ok := s[FieldCurrentLane].(string)
	if !ok {
		return &StateInvalidError{Reason: "missing required field \"current_lane\""}
	}
	if !conversation.IsKnownLane(lane) {
		return &StateInvalidError{Reason: fmt.Sprintf("unknown lane %q", lane)}
	}
	return nil
}
