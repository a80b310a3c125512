package auth

import (
	"github.com/BrandonDHaskell/Portunus/gate/internal/config"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// ParseMode resolves a mode configuration key.  An unrecognized key is a
// configuration error, not a silent fallback to deny.
func ParseMode(name string) (types.AuthMode, error) {
	m, ok := types.LookupMode(name)
	if !ok {
		return types.ModeDeny, config.NewError("auth mode", name)
	}
	return m, nil
}
