package memory

import (
	"bytes"
	"context"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
)

// CredentialStore is a read-only credential lookup built once at startup.
// It needs no locking: nothing mutates it after NewCredentialStore returns.
type CredentialStore struct {
	principals map[string]store.PrincipalRecord
	byCard     map[string]string // card key -> principal key
	cards      map[string]store.CardRecord
}

// NewCredentialStore indexes the given records by their normalized keys.
// Later duplicates win; the fixtures loader rejects duplicates before this.
func NewCredentialStore(principals []store.PrincipalRecord, cards []store.CardRecord) *CredentialStore {
	s := &CredentialStore{
		principals: make(map[string]store.PrincipalRecord, len(principals)),
		byCard:     make(map[string]string, len(principals)),
		cards:      make(map[string]store.CardRecord, len(cards)),
	}
	for _, p := range principals {
		k := store.NormalizeKey(p.Identity)
		if k == "" {
			continue
		}
		p.BiometricTemplate = bytes.Clone(p.BiometricTemplate)
		s.principals[k] = p
		if c := store.NormalizeKey(p.CardID); c != "" {
			s.byCard[c] = k
		}
	}
	for _, c := range cards {
		k := store.NormalizeKey(c.CardID)
		if k == "" {
			continue
		}
		if c.ExpiresAt != nil {
			exp := *c.ExpiresAt
			c.ExpiresAt = &exp
		}
		s.cards[k] = c
	}
	return s
}

func (s *CredentialStore) LookupPrincipal(_ context.Context, identity string) (store.PrincipalRecord, error) {
	p, ok := s.principals[store.NormalizeKey(identity)]
	if !ok {
		return store.PrincipalRecord{}, store.ErrNotFound
	}
	return clonePrincipal(p), nil
}

func (s *CredentialStore) LookupPrincipalByCard(_ context.Context, cardID string) (store.PrincipalRecord, error) {
	k, ok := s.byCard[store.NormalizeKey(cardID)]
	if !ok {
		return store.PrincipalRecord{}, store.ErrNotFound
	}
	return clonePrincipal(s.principals[k]), nil
}

func (s *CredentialStore) ReadCard(_ context.Context, cardID string) (store.CardRecord, error) {
	c, ok := s.cards[store.NormalizeKey(cardID)]
	if !ok {
		return store.CardRecord{}, store.ErrNotFound
	}
	if c.ExpiresAt != nil {
		exp := *c.ExpiresAt
		c.ExpiresAt = &exp
	}
	return c, nil
}

// Len returns the number of principals and cards held.
func (s *CredentialStore) Len() (principals, cards int) {
	return len(s.principals), len(s.cards)
}

func clonePrincipal(p store.PrincipalRecord) store.PrincipalRecord {
	p.BiometricTemplate = bytes.Clone(p.BiometricTemplate)
	return p
}
