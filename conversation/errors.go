package conversation

// Error kinds surfaced in TurnResult.Err. These are stable strings, not
// error types: the egress layer and the logs key off them.
const (
	ErrKindLockUnavailable = "lock_unavailable"
	ErrKindStateInvalid    = "state_invalid"
	ErrKindDuplicateTurn   = "duplicate_turn"
	ErrKindPatchConflict   = "patch_conflict"
	ErrKindAgentFailure    = "agent_failure"
	ErrKindRouterFailure   = "router_failure"
	ErrKindStoreFailure    = "store_failure"
	ErrKindTurnUnhandled   = "turn_unhandled"
)
