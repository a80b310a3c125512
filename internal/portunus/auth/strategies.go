package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/policy"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Strategy is the mode-specific core step of the pipeline.  It only runs
// after pre-validation, and every failure it reports is final.
type Strategy func(ctx context.Context, req types.AuthRequest) types.AuthResult

// Deps are the collaborators the built-in strategies close over.
type Deps struct {
	Credentials store.CredentialStore
	Addresses   *policy.AddressPolicy // nil = default denylist
	Now         func() time.Time      // nil = time.Now
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// NewStrategies returns the mode table for the four authenticating modes.
// Deny is deliberately absent; the dispatcher supplies it.
func NewStrategies(d Deps) map[types.AuthMode]Strategy {
	return map[types.AuthMode]Strategy{
		types.ModePhysicalBiometry: d.physicalBiometry,
		types.ModePhysicalCard:     d.physicalCard,
		types.ModeOnlineBiometry:   d.onlineBiometry,
		types.ModeOnlineCard:       d.onlineCard,
	}
}

// DenyStrategy always fails.  Used for ModeDeny and any unmapped mode.
func DenyStrategy(context.Context, types.AuthRequest) types.AuthResult {
	return types.Fail(ErrUnknownMode, "denied: unknown or disallowed mode")
}

func (d Deps) physicalBiometry(ctx context.Context, req types.AuthRequest) types.AuthResult {
	user, fail, ok := d.principal(ctx, req.Identity)
	if !ok {
		return fail
	}
	if !user.AllowPhysical {
		return types.Fail(ErrForbidden, "user not permitted for physical authentication")
	}
	if len(req.BiometricSample) == 0 {
		return types.Fail(ErrMissingCredential, "biometric sample missing")
	}
	if !policy.BiometricMatches(req.BiometricSample, user.BiometricTemplate) {
		return types.Fail(ErrBiometricMismatch, "physical biometry invalid")
	}
	return types.Ok("physical biometry validated")
}

func (d Deps) physicalCard(ctx context.Context, req types.AuthRequest) types.AuthResult {
	if strings.TrimSpace(req.CardID) == "" {
		return types.Fail(ErrMissingCredential, "card not presented")
	}
	if _, fail, ok := d.boundCard(ctx, req); !ok {
		return fail
	}

	user, fail, ok := d.principal(ctx, req.Identity)
	if !ok {
		return fail
	}
	if !user.AllowPhysical {
		return types.Fail(ErrForbidden, "user not permitted for physical authentication")
	}
	return types.Ok("physical card validated")
}

func (d Deps) onlineBiometry(ctx context.Context, req types.AuthRequest) types.AuthResult {
	user, fail, ok := d.principal(ctx, req.Identity)
	if !ok {
		return fail
	}
	if !user.AllowOnline {
		return types.Fail(ErrForbidden, "user not permitted for online authentication")
	}
	if len(req.BiometricSample) == 0 {
		return types.Fail(ErrMissingCredential, "biometric sample missing")
	}
	// Risk check precedes the template match.
	if d.Addresses.IsSuspicious(req.ClientAddress) {
		return types.Fail(ErrBlocked, "suspicious client address - blocked")
	}
	if !policy.BiometricMatches(req.BiometricSample, user.BiometricTemplate) {
		return types.Fail(ErrBiometricMismatch, "online biometry invalid")
	}
	return types.Ok("online biometry validated")
}

func (d Deps) onlineCard(ctx context.Context, req types.AuthRequest) types.AuthResult {
	if strings.TrimSpace(req.CardID) == "" {
		return types.Fail(ErrMissingCredential, "online card token not presented")
	}
	card, fail, ok := d.boundCard(ctx, req)
	if !ok {
		return fail
	}
	if d.Addresses.IsSuspicious(req.ClientAddress) {
		return types.Fail(ErrBlocked, "suspicious client address - blocked")
	}

	user, fail, ok := d.principal(ctx, req.Identity)
	if !ok {
		return fail
	}
	if !user.AllowOnline {
		return types.Fail(ErrForbidden, "user not permitted for online authentication")
	}
	if !policy.IsServerKnownToken(card.AuthToken) {
		return types.Fail(ErrInvalidToken, "card token rejected by server")
	}
	return types.Ok("online card validated against card payload")
}

// LegacyCardStrategy is the pre-card-record check: permission first, then a
// prefix test on the presented card id.  It is not bound to any AuthMode;
// register it explicitly to use it.
func LegacyCardStrategy(d Deps) Strategy {
	return func(ctx context.Context, req types.AuthRequest) types.AuthResult {
		user, fail, ok := d.principal(ctx, req.Identity)
		if !ok {
			return fail
		}
		if !user.AllowOnline {
			return types.Fail(ErrForbidden, "user not permitted for online authentication")
		}
		if strings.TrimSpace(req.CardID) == "" {
			return types.Fail(ErrMissingCredential, "token/card not presented")
		}
		if !policy.IsCardTokenSyntaxValid(req.CardID) {
			return types.Fail(ErrInvalidToken, "online token/card invalid")
		}
		return types.Ok("online token/card validated")
	}
}

// principal resolves the requesting identity.  ok=false means fail is the
// terminal result.
func (d Deps) principal(ctx context.Context, identity string) (store.PrincipalRecord, types.AuthResult, bool) {
	user, err := d.Credentials.LookupPrincipal(ctx, identity)
	switch {
	case err == nil:
		return user, types.AuthResult{}, true
	case errors.Is(err, store.ErrNotFound):
		return user, types.Fail(ErrNotFound, "user not found"), false
	default:
		return user, types.Fail(fmt.Errorf("%w: %w", ErrLookup, err), "user lookup failed"), false
	}
}

// boundCard reads the presented card and checks expiry then binding to the
// requesting identity, in that order.
func (d Deps) boundCard(ctx context.Context, req types.AuthRequest) (store.CardRecord, types.AuthResult, bool) {
	card, err := d.Credentials.ReadCard(ctx, req.CardID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return card, types.Fail(ErrUnknownCard, "card unknown"), false
	case err != nil:
		return card, types.Fail(fmt.Errorf("%w: %w", ErrLookup, err), "card lookup failed"), false
	}
	if card.Expired(d.now()) {
		return card, types.Fail(ErrExpired, "card expired"), false
	}
	if !card.BelongsTo(req.Identity) {
		return card, types.Fail(ErrMismatch, "card does not belong to the presented user"), false
	}
	return card, types.AuthResult{}, true
}
