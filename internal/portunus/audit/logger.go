package audit

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Entry is one observed access attempt.
type Entry struct {
	AttemptID  uuid.UUID
	Identity   string
	Method     string
	Success    bool
	When       time.Time
	CardIDHash string // hex blake2b-256 of the normalized card id; empty when no card
}

// AccessLogger is the capability the Recorder forwards attempts to.
type AccessLogger interface {
	LogAccess(ctx context.Context, e Entry) error
}

// HashCardID returns the hex blake2b-256 digest of the trimmed, lower-cased
// card id.  Card ids never reach a log in the clear.
func HashCardID(cardID string) string {
	cardID = strings.ToLower(strings.TrimSpace(cardID))
	if cardID == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(cardID))
	return hex.EncodeToString(sum[:])
}

// BiometricLogger writes attempts as structured log lines.
type BiometricLogger struct {
	log *slog.Logger
}

func NewBiometricLogger(l *slog.Logger) *BiometricLogger {
	return &BiometricLogger{log: l}
}

func (b *BiometricLogger) LogAccess(ctx context.Context, e Entry) error {
	b.log.InfoContext(ctx, "access attempt",
		slog.String("channel", "biometric"),
		slog.String("attempt_id", e.AttemptID.String()),
		slog.String("identity", e.Identity),
		slog.String("method", e.Method),
		slog.Bool("success", e.Success),
		slog.Time("at", e.When),
	)
	return nil
}

// CredentialLogger is BiometricLogger plus the card id digest.
type CredentialLogger struct {
	log *slog.Logger
}

func NewCredentialLogger(l *slog.Logger) *CredentialLogger {
	return &CredentialLogger{log: l}
}

func (c *CredentialLogger) LogAccess(ctx context.Context, e Entry) error {
	c.log.InfoContext(ctx, "access attempt",
		slog.String("channel", "credential"),
		slog.String("attempt_id", e.AttemptID.String()),
		slog.String("identity", e.Identity),
		slog.String("method", e.Method),
		slog.Bool("success", e.Success),
		slog.Time("at", e.When),
		slog.String("card_id_hash", e.CardIDHash),
	)
	return nil
}

// EventRegistrar is the slice of the access event service the event-store
// logger needs.
type EventRegistrar interface {
	RegisterAccessEvent(ctx context.Context, badgeID, areaName string, ts time.Time, granted bool) (types.AccessEvent, error)
}

// EventStoreLogger persists each attempt as an access event: the identity
// becomes the badge and the method becomes the area.
type EventStoreLogger struct {
	events EventRegistrar
}

func NewEventStoreLogger(events EventRegistrar) *EventStoreLogger {
	return &EventStoreLogger{events: events}
}

func (s *EventStoreLogger) LogAccess(ctx context.Context, e Entry) error {
	_, err := s.events.RegisterAccessEvent(ctx, e.Identity, e.Method, e.When, e.Success)
	return err
}
