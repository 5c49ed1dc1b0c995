// Package server is the HTTP surface: the WhatsApp webhook ingress, the
// outbound Cloud API sender, health and metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/charlahq/charla/conversation"
	"github.com/charlahq/charla/internal/profile"
	"github.com/charlahq/charla/internal/version"
	"github.com/charlahq/charla/metrics"
	"github.com/charlahq/charla/orchestrator"
	"github.com/charlahq/charla/session"
)

// maxConcurrentTurns bounds the webhook worker pool. Per-conversation
// ordering comes from the session lock, not from this pool.
const maxConcurrentTurns = 32

// TurnHandler is the slice of the orchestrator the ingress consumes.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn conversation.Turn) conversation.TurnResult
}

// Server wires the echo instance, the turn controller and the sender.
type Server struct {
	e        *echo.Echo
	profile  *profile.Profile
	handler  TurnHandler
	sender   *Sender
	store    session.Store
	workers  *errgroup.Group
	workCtx  context.Context
	stopWork context.CancelFunc
}

// NewServer builds the HTTP server around an already-wired controller.
func NewServer(p *profile.Profile, handler TurnHandler, sender *Sender, store session.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	workCtx, stopWork := context.WithCancel(context.Background())
	workers, workCtx := errgroup.WithContext(workCtx)
	workers.SetLimit(maxConcurrentTurns)

	s := &Server{
		e:        e,
		profile:  p,
		handler:  handler,
		sender:   sender,
		store:    store,
		workers:  workers,
		workCtx:  workCtx,
		stopWork: stopWork,
	}

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/webhook/whatsapp", s.verifyWebhook)
	e.POST("/webhook/whatsapp", s.receiveWebhook)

	return s
}

// Start begins serving. It returns once the listener is up; errors after
// that surface through Shutdown.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("server: listener failed", "addr", addr, "error", err.Error())
		}
	}()
	slog.Info("server: listening", "addr", addr, "version", version.String())
	return nil
}

// Shutdown drains the webhook workers and stops the listener.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server: shutdown failed", "error", err.Error())
	}
	s.stopWork()
	if err := s.workers.Wait(); err != nil {
		slog.Warn("server: worker pool drained with error", "error", err.Error())
	}
	slog.Info("server: stopped")
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

// dispatch hands a turn to the worker pool and sends the replies when the
// controller succeeds. Lock contention is not retried here: WhatsApp
// redelivers, and the processed marker absorbs the duplicates.
func (s *Server) dispatch(rec orchestrator.MessageRecord) {
	s.workers.Go(func() error {
		turn := orchestrator.BuildTurn(rec)
		result := s.handler.HandleTurn(s.workCtx, turn)
		if !result.Success {
			return nil
		}
		if s.sender != nil {
			if err := s.sender.Send(s.workCtx, turn.WaID, result.Messages); err != nil {
				slog.Error("server: send failed",
					"wa_id", turn.WaID,
					"message_id", turn.MessageID,
					"error", err.Error(),
				)
			}
		}
		return nil
	})
}
