package audit

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/BrandonDHaskell/Portunus/gate/internal/config"
)

// Deps carries what any logger variant may need.  Unused fields may be nil.
type Deps struct {
	Logger *slog.Logger
	Events EventRegistrar
}

type factory func(Deps) (AccessLogger, error)

var factories = map[string]factory{
	config.LoggerBiometric: func(d Deps) (AccessLogger, error) {
		return NewBiometricLogger(d.logger()), nil
	},
	config.LoggerCredential: func(d Deps) (AccessLogger, error) {
		return NewCredentialLogger(d.logger()), nil
	},
	config.LoggerEventStore: func(d Deps) (AccessLogger, error) {
		if d.Events == nil {
			return nil, fmt.Errorf("%w: %s logger needs an event service", config.ErrConfiguration, config.LoggerEventStore)
		}
		return NewEventStoreLogger(d.Events), nil
	},
}

// ResolveLogger maps a logger mode key to its variant.  Keys are matched
// case-insensitively; an unknown key is a *config.Error.
func ResolveLogger(name string, d Deps) (AccessLogger, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, config.NewError("logger mode", name)
	}
	return f(d)
}

// LoggerModes lists the recognized keys, sorted.
func LoggerModes() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
