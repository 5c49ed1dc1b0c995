// Package orchestrator owns the turn lifecycle: idempotency, the per-session
// lock, routing, the baton chain across agents, and persistence.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/charlahq/charla/agents"
	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/internal/strutil"
	"github.com/charlahq/charla/messaging"
	"github.com/charlahq/charla/metrics"
	"github.com/charlahq/charla/routing"
	"github.com/charlahq/charla/session"
)

// Router is the slice of the routing layer the controller consumes.
type Router interface {
	Route(ctx context.Context, turn conversation.Turn, sess session.Session) routing.Decision
}

// AgentProvider resolves lanes to agents.
type AgentProvider interface {
	ForLane(lane conversation.Lane) (agents.Agent, error)
}

// Config tunes the controller. Zero values take the defaults noted per field.
type Config struct {
	SessionTTL      time.Duration // default 24h
	LockTTL         time.Duration // default 30s
	IdempotencyTTL  time.Duration // default 1h
	MaxBatonHops    int           // default 2
	MaxDialogueText int           // default 200, for log digests
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = time.Hour
	}
	if c.MaxBatonHops <= 0 {
		c.MaxBatonHops = 2
	}
	if c.MaxDialogueText <= 0 {
		c.MaxDialogueText = 200
	}
	return c
}

// Controller serialises and executes turns.
type Controller struct {
	store  session.Store
	router Router
	agents AgentProvider
	cfg    Config
	clock  func() time.Time
}

// NewController wires the turn controller.
func NewController(store session.Store, router Router, provider AgentProvider, cfg Config) *Controller {
	return &Controller{
		store:  store,
		router: router,
		agents: provider,
		cfg:    cfg.withDefaults(),
		clock:  time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (c *Controller) SetClock(clock func() time.Time) {
	c.clock = clock
}

// HandleTurn executes one inbound turn end to end. It always returns a
// result; Err carries the error kind when Success is false.
func (c *Controller) HandleTurn(ctx context.Context, turn conversation.Turn) conversation.TurnResult {
	start := c.clock()
	result := c.handle(ctx, turn)
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	if result.Success {
		metrics.TurnsTotal.WithLabelValues("ok").Inc()
		slog.Info("turn_completed",
			"event", "turn_completed",
			"tenant_id", turn.TenantID,
			"wa_id", turn.WaID,
			"message_id", turn.MessageID,
			"lane", result.Lane,
			"messages", len(result.Messages),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		metrics.TurnsTotal.WithLabelValues(result.Err).Inc()
		slog.Warn("turn_error",
			"event", "turn_error",
			"tenant_id", turn.TenantID,
			"wa_id", turn.WaID,
			"message_id", turn.MessageID,
			"error_kind", result.Err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return result
}

func (c *Controller) handle(ctx context.Context, turn conversation.Turn) conversation.TurnResult {
	processedKey := session.ProcessedKey(turn.MessageID)
	done, err := c.store.Exists(ctx, processedKey)
	if err != nil {
		return failure(conversation.ErrKindStoreFailure)
	}
	if done {
		// A redelivered message is acknowledged, not an error: the first
		// delivery already produced the reply.
		return conversation.TurnResult{Success: true, Err: conversation.ErrKindDuplicateTurn}
	}

	lockKey := session.LockKey(turn.TenantID, turn.WaID)
	holder := uuid.NewString()
	acquired, err := c.store.TryAcquireLock(ctx, lockKey, holder, c.cfg.LockTTL)
	if err != nil {
		return failure(conversation.ErrKindStoreFailure)
	}
	if !acquired {
		return failure(conversation.ErrKindLockUnavailable)
	}
	defer func() {
		if err := c.store.ReleaseLock(context.WithoutCancel(ctx), lockKey, holder); err != nil {
			slog.Warn("controller: lock release failed", "key", lockKey, "error", err.Error())
		}
	}()

	sess, reset, err := c.loadOrCreate(ctx, turn)
	if err != nil {
		return failure(conversation.ErrKindStoreFailure)
	}
	if reset {
		// The stored state is unusable; store the fresh session so the next
		// turn starts clean, but fail this one rather than answer from a
		// fabricated state.
		if err := c.persist(ctx, turn, sess); err != nil {
			return failure(conversation.ErrKindStoreFailure)
		}
		c.markProcessed(ctx, processedKey)
		return failure(conversation.ErrKindStateInvalid)
	}

	// Record the user message before anything can fail, so the dialogue
	// survives an agent crash.
	sess.AppendTurn(conversation.UserEntry(turn.Text, turn.MessageID, turn.Timestamp))
	sess[session.FieldLastUserMsgID] = turn.MessageID
	c.touch(sess)
	if err := c.persist(ctx, turn, sess); err != nil {
		return failure(conversation.ErrKindStoreFailure)
	}

	decision := c.router.Route(ctx, turn, sess)
	metrics.RouterDecisions.WithLabelValues(decision.Source, decision.Lane).Inc()
	slog.Info("turn_routed",
		"event", "turn_routed",
		"tenant_id", turn.TenantID,
		"wa_id", turn.WaID,
		"message_id", turn.MessageID,
		"lane", decision.Lane,
		"intent", decision.Intent,
		"confidence", decision.Confidence,
		"source", decision.Source,
		"text", strutil.Truncate(turn.Text, c.cfg.MaxDialogueText),
	)
	sess[session.FieldCurrentLane] = decision.Lane

	messages, finalLane, runErr := c.runChain(ctx, turn, sess, decision)
	if runErr != "" {
		// The step-5 session (user entry recorded) is already stored; mark
		// the message processed so a redelivery does not re-run the agents.
		c.markProcessed(ctx, processedKey)
		return failure(runErr)
	}

	sess[session.FieldCurrentLane] = finalLane
	sess[session.FieldLastAssistantMsgID] = uuid.NewString()
	c.touch(sess)

	if err := session.Validate(sess); err != nil {
		slog.Error("validation_error",
			"event", "validation_error",
			"tenant_id", turn.TenantID,
			"wa_id", turn.WaID,
			"stage", "final",
			"error", err.Error(),
		)
		c.markProcessed(ctx, processedKey)
		return failure(conversation.ErrKindStateInvalid)
	}
	if err := c.persist(ctx, turn, sess); err != nil {
		// The step-5 session is already stored; mark the message processed so
		// WhatsApp redeliveries do not retry the whole turn forever.
		c.markProcessed(ctx, processedKey)
		return failure(conversation.ErrKindStoreFailure)
	}
	c.markProcessed(ctx, processedKey)

	return conversation.TurnResult{Success: true, Messages: messages, Lane: finalLane}
}

// runChain invokes the entry agent and follows batons until an agent stops,
// a hop rule fires, or the hop budget is spent. Messages accumulate across
// hops, and every agent in the chain appends its own assistant dialogue
// entry. Returns the error kind on failure.
func (c *Controller) runChain(ctx context.Context, turn conversation.Turn, sess session.Session,
	decision routing.Decision) ([]messaging.OutgoingMessage, conversation.Lane, string) {

	lane := decision.Lane
	intent := decision.Intent
	var messages []messaging.OutgoingMessage

	for hop := 0; ; hop++ {
		agent, err := c.agents.ForLane(lane)
		if err != nil {
			return nil, lane, conversation.ErrKindTurnUnhandled
		}
		metrics.AgentTurns.WithLabelValues(lane).Inc()

		resp := agent.Run(ctx, turn, sess, intent)
		sess.Apply(resp.StatePatch)
		sess.AppendTurn(conversation.AssistantEntry(lane, resp.Messages, conversation.Timestamp(c.clock())))
		messages = append(messages, resp.Messages...)

		baton := resp.Baton
		if baton == nil {
			return messages, lane, ""
		}
		if stop := c.batonStop(turn, lane, hop, baton); stop {
			return messages, lane, ""
		}
		sess.Apply(baton.CarryState)
		lane = baton.ToLane
		intent = baton.Intent
	}
}

// batonStop reports whether a requested handoff must be refused, logging the
// reason. Hops are counted per turn, not per agent.
func (c *Controller) batonStop(turn conversation.Turn, lane conversation.Lane, hop int, baton *conversation.Baton) bool {
	reason := ""
	switch {
	case !conversation.IsKnownLane(baton.ToLane):
		reason = "unknown_lane"
	case baton.ToLane == lane:
		reason = "same_lane_handoff"
	case hop+1 > c.cfg.MaxBatonHops:
		reason = "hop_limit"
	}
	if reason == "" {
		return false
	}
	slog.Warn("baton_stop",
		"event", "baton_stop",
		"tenant_id", turn.TenantID,
		"wa_id", turn.WaID,
		"message_id", turn.MessageID,
		"from_lane", lane,
		"to_lane", baton.ToLane,
		"hop", hop,
		"reason", reason,
	)
	return true
}

// loadOrCreate fetches the stored session or builds a fresh one. A stored
// session that fails validation is replaced by a fresh one and reported via
// reset so the caller can fail the turn while leaving clean state behind.
func (c *Controller) loadOrCreate(ctx context.Context, turn conversation.Turn) (sess session.Session, reset bool, err error) {
	raw, err := c.store.Get(ctx, session.SessionKey(turn.TenantID, turn.WaID))
	if err != nil {
		return nil, false, errors.Wrap(err, "load session")
	}
	if raw == nil {
		return c.create(turn), false, nil
	}

	sess = session.FromJSON(raw)
	if err := session.Validate(sess); err != nil {
		slog.Error("validation_error",
			"event", "validation_error",
			"tenant_id", turn.TenantID,
			"wa_id", turn.WaID,
			"stage", "load",
			"error", err.Error(),
		)
		return c.create(turn), true, nil
	}
	return sess, false, nil
}

func (c *Controller) create(turn conversation.Turn) session.Session {
	sess := session.NewSession(turn.TenantID, turn.WaID, session.DefaultLocale, session.DefaultTimezone)
	slog.Info("session_created",
		"event", "session_created",
		"tenant_id", turn.TenantID,
		"wa_id", turn.WaID,
	)
	return sess
}

// touch advances updated_at, never backwards even under clock skew.
func (c *Controller) touch(sess session.Session) {
	now := c.clock().UTC()
	if prev := sess.GetString(session.FieldUpdatedAt); prev != "" {
		if t, err := time.Parse(time.RFC3339, prev); err == nil && !now.After(t) {
			now = t.Add(time.Second)
		}
	}
	sess[session.FieldUpdatedAt] = conversation.Timestamp(now)
}

func (c *Controller) persist(ctx context.Context, turn conversation.Turn, sess session.Session) error {
	data, err := sess.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	key := session.SessionKey(turn.TenantID, turn.WaID)
	if err := c.store.SetEx(ctx, key, c.cfg.SessionTTL, data); err != nil {
		return errors.Wrapf(err, "persist session %s", key)
	}
	return nil
}

func (c *Controller) markProcessed(ctx context.Context, processedKey string) {
	if err := c.store.SetEx(ctx, processedKey, c.cfg.IdempotencyTTL, []byte("1")); err != nil {
		slog.Warn("controller: idempotency marker write failed",
			"key", processedKey, "error", err.Error())
	}
}

func failure(kind string) conversation.TurnResult {
	return conversation.TurnResult{Success: false, Err: kind}
}
