// Package fixtures builds the credential store the gate authenticates
// against, either from the built-in seed or from a YAML/TOML file.
package fixtures

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/memory"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported fixtures format")
	ErrInvalidFixture    = errors.New("invalid fixture")
)

// File is the on-disk fixtures layout.
type File struct {
	Principals []Principal `yaml:"principals" toml:"principals"`
	Cards      []Card      `yaml:"cards" toml:"cards"`
}

type Principal struct {
	Identity      string `yaml:"identity" toml:"identity"`
	CardID        string `yaml:"card_id" toml:"card_id"`
	Template      []int  `yaml:"template" toml:"template"`
	AllowPhysical bool   `yaml:"allow_physical" toml:"allow_physical"`
	AllowOnline   bool   `yaml:"allow_online" toml:"allow_online"`
}

type Card struct {
	CardID             string     `yaml:"card_id" toml:"card_id"`
	RegisteredIdentity string     `yaml:"registered_identity" toml:"registered_identity"`
	AuthToken          string     `yaml:"auth_token" toml:"auth_token"`
	IssuedAt           time.Time  `yaml:"issued_at" toml:"issued_at"`
	ExpiresAt          *time.Time `yaml:"expires_at,omitempty" toml:"expires_at,omitempty"`
}

// Default returns the seed principals alice, bob and eve with cards valid
// for a year from now.
func Default(now time.Time) *memory.CredentialStore {
	now = now.UTC()
	exp := now.AddDate(1, 0, 0)
	return memory.NewCredentialStore(
		[]store.PrincipalRecord{
			{Identity: "alice", CardID: "CARD-100", BiometricTemplate: []byte{1, 2, 3, 4}, AllowPhysical: true, AllowOnline: true},
			{Identity: "bob", CardID: "CARD-200", BiometricTemplate: []byte{5, 6, 7, 8}, AllowPhysical: true, AllowOnline: false},
			{Identity: "eve", CardID: "CARD-999", BiometricTemplate: []byte{9, 9, 9, 9}, AllowPhysical: false, AllowOnline: true},
		},
		[]store.CardRecord{
			{CardID: "CARD-100", RegisteredIdentity: "alice", AuthToken: "TOKEN-ALICE-100", IssuedAt: now.AddDate(0, 0, -10), ExpiresAt: &exp},
			{CardID: "CARD-200", RegisteredIdentity: "bob", AuthToken: "TOKEN-BOB-200", IssuedAt: now.AddDate(0, 0, -30), ExpiresAt: &exp},
			{CardID: "CARD-999", RegisteredIdentity: "eve", AuthToken: "TOKEN-EVE-999", IssuedAt: now.AddDate(0, 0, -1), ExpiresAt: &exp},
		},
	)
}

// Load reads a fixtures file, choosing the decoder by extension.
func Load(path string) (*memory.CredentialStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	case ".toml":
		_, err = toml.Decode(string(b), &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode fixtures %s: %w", path, err)
	}

	return f.Build()
}

// Build validates the file contents and indexes them.
func (f File) Build() (*memory.CredentialStore, error) {
	principals := make([]store.PrincipalRecord, 0, len(f.Principals))
	seen := make(map[string]struct{}, len(f.Principals))
	for i, p := range f.Principals {
		k := store.NormalizeKey(p.Identity)
		if k == "" {
			return nil, fmt.Errorf("%w: principal #%d has no identity", ErrInvalidFixture, i)
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: duplicate identity %q", ErrInvalidFixture, p.Identity)
		}
		seen[k] = struct{}{}

		tmpl, err := templateBytes(p.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: principal %q: %v", ErrInvalidFixture, p.Identity, err)
		}
		principals = append(principals, store.PrincipalRecord{
			Identity:          strings.TrimSpace(p.Identity),
			CardID:            strings.TrimSpace(p.CardID),
			BiometricTemplate: tmpl,
			AllowPhysical:     p.AllowPhysical,
			AllowOnline:       p.AllowOnline,
		})
	}

	cards := make([]store.CardRecord, 0, len(f.Cards))
	seenCards := make(map[string]struct{}, len(f.Cards))
	for i, c := range f.Cards {
		k := store.NormalizeKey(c.CardID)
		if k == "" {
			return nil, fmt.Errorf("%w: card #%d has no card_id", ErrInvalidFixture, i)
		}
		if _, dup := seenCards[k]; dup {
			return nil, fmt.Errorf("%w: duplicate card %q", ErrInvalidFixture, c.CardID)
		}
		seenCards[k] = struct{}{}
		if strings.TrimSpace(c.RegisteredIdentity) == "" {
			return nil, fmt.Errorf("%w: card %q has no registered_identity", ErrInvalidFixture, c.CardID)
		}
		cards = append(cards, store.CardRecord{
			CardID:             strings.TrimSpace(c.CardID),
			RegisteredIdentity: strings.TrimSpace(c.RegisteredIdentity),
			AuthToken:          c.AuthToken,
			IssuedAt:           c.IssuedAt.UTC(),
			ExpiresAt:          c.ExpiresAt,
		})
	}

	return memory.NewCredentialStore(principals, cards), nil
}

func templateBytes(vals []int) ([]byte, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("template byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}
