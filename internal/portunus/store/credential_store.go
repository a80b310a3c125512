package store

import (
	"context"
	"strings"
	"time"
)

// PrincipalRecord is the enrolled state of one identity.  AllowPhysical and
// AllowOnline are the only authority on whether a mode family is permitted.
type PrincipalRecord struct {
	Identity          string
	CardID            string
	BiometricTemplate []byte
	AllowPhysical     bool
	AllowOnline       bool
}

// CardRecord is the payload carried by a card.
type CardRecord struct {
	CardID             string
	RegisteredIdentity string
	AuthToken          string
	IssuedAt           time.Time
	ExpiresAt          *time.Time // nil = never expires
}

// Expired reports whether the card has an expiry strictly before now.
func (c CardRecord) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// BelongsTo reports whether the card is registered to identity.
func (c CardRecord) BelongsTo(identity string) bool {
	return strings.EqualFold(strings.TrimSpace(c.RegisteredIdentity), strings.TrimSpace(identity))
}

// CredentialStore is a read-only lookup of principals and cards.  Keys are
// matched case-insensitively.  A missing key yields ErrNotFound.
type CredentialStore interface {
	LookupPrincipal(ctx context.Context, identity string) (PrincipalRecord, error)
	LookupPrincipalByCard(ctx context.Context, cardID string) (PrincipalRecord, error)
	ReadCard(ctx context.Context, cardID string) (CardRecord, error)
}

// NormalizeKey is the canonical form used to index identities and card ids.
func NormalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
