package fixtures_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/fixtures"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
)

func TestDefault_SeedsThreePrincipals(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	s := fixtures.Default(now)
	ctx := context.Background()

	principals, cards := s.Len()
	if principals != 3 || cards != 3 {
		t.Fatalf("expected 3 principals and 3 cards, got %d/%d", principals, cards)
	}

	bob, err := s.LookupPrincipal(ctx, "bob")
	if err != nil {
		t.Fatalf("LookupPrincipal(bob): %v", err)
	}
	if !bob.AllowPhysical || bob.AllowOnline {
		t.Errorf("expected bob physical-only, got %+v", bob)
	}

	card, err := s.ReadCard(ctx, "CARD-999")
	if err != nil {
		t.Fatalf("ReadCard: %v", err)
	}
	if card.RegisteredIdentity != "eve" || card.Expired(now) {
		t.Errorf("unexpected eve card %+v", card)
	}
}

func TestLoad_YAML(t *testing.T) {
	s, err := fixtures.Load("testdata/credentials.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx := context.Background()

	alice, err := s.LookupPrincipal(ctx, "ALICE")
	if err != nil {
		t.Fatalf("LookupPrincipal: %v", err)
	}
	if string(alice.BiometricTemplate) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("unexpected template %v", alice.BiometricTemplate)
	}

	card, err := s.ReadCard(ctx, "card-200")
	if err != nil {
		t.Fatalf("ReadCard: %v", err)
	}
	if !card.Expired(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected bob's fixture card to be expired in 2026")
	}
}

func TestLoad_TOML(t *testing.T) {
	s, err := fixtures.Load("testdata/credentials.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	card, err := s.ReadCard(context.Background(), "CARD-999")
	if err != nil {
		t.Fatalf("ReadCard: %v", err)
	}
	if card.ExpiresAt != nil {
		t.Errorf("expected no expiry, got %v", card.ExpiresAt)
	}
	if _, err := s.LookupPrincipalByCard(context.Background(), "card-999"); err != nil {
		t.Errorf("LookupPrincipalByCard: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := fixtures.Load("testdata/bad_template.yaml"); !errors.Is(err, fixtures.ErrInvalidFixture) {
		t.Errorf("expected ErrInvalidFixture for out-of-range byte, got %v", err)
	}
	if _, err := fixtures.Load("testdata/credentials.json"); err == nil {
		t.Error("expected error for missing/unsupported file")
	}
}

func TestBuild_RejectsDuplicates(t *testing.T) {
	f := fixtures.File{
		Principals: []fixtures.Principal{{Identity: "alice"}, {Identity: "Alice"}},
	}
	if _, err := f.Build(); !errors.Is(err, fixtures.ErrInvalidFixture) {
		t.Errorf("expected duplicate identity rejected, got %v", err)
	}

	f = fixtures.File{
		Cards: []fixtures.Card{{CardID: "CARD-1"}},
	}
	if _, err := f.Build(); !errors.Is(err, fixtures.ErrInvalidFixture) {
		t.Errorf("expected card without owner rejected, got %v", err)
	}
}

func TestBuild_UnknownLookupsAreNotFound(t *testing.T) {
	s, err := fixtures.File{}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := s.LookupPrincipal(context.Background(), "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
