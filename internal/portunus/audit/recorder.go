package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/auth"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Recorder turns authentication outcomes into Entries for an AccessLogger.
// Logger failures never reach the caller: they are logged as warnings and
// handed to the optional error handler.
type Recorder struct {
	logger  AccessLogger
	diag    *slog.Logger
	onError func(error)
	now     func() time.Time
}

type RecorderOption func(*Recorder)

// WithErrorHandler installs the side channel that receives logger failures.
func WithErrorHandler(fn func(error)) RecorderOption {
	return func(r *Recorder) { r.onError = fn }
}

// WithDiagnostics sets where logger failures are reported as warnings.
func WithDiagnostics(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.diag = l
		}
	}
}

// WithClock overrides the time source used when no timestamp is given.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(l AccessLogger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		logger: l,
		diag:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RecordAccess forwards one attempt.  A zero when means now.
func (r *Recorder) RecordAccess(ctx context.Context, identity, method string, success bool, when time.Time) {
	r.record(ctx, Entry{
		Identity: identity,
		Method:   method,
		Success:  success,
		When:     when,
	})
}

// Observer adapts the recorder into a dispatcher observer so denials are
// recorded alongside successes.  Requests without an identity have nothing
// to attribute and are skipped.
func (r *Recorder) Observer() auth.Observer {
	return func(ctx context.Context, req types.AuthRequest, res types.AuthResult) {
		if strings.TrimSpace(req.Identity) == "" {
			return
		}
		r.record(ctx, Entry{
			Identity:   req.Identity,
			Method:     req.Mode.String(),
			Success:    res.Success,
			CardIDHash: HashCardID(req.CardID),
		})
	}
}

func (r *Recorder) record(ctx context.Context, e Entry) {
	if r.logger == nil {
		return
	}
	e.AttemptID = uuid.New()
	if e.When.IsZero() {
		e.When = r.now()
	}

	if err := r.forward(ctx, e); err != nil {
		r.diag.WarnContext(ctx, "audit log failed",
			slog.String("attempt_id", e.AttemptID.String()),
			slog.String("identity", e.Identity),
			slog.Any("err", err),
		)
		if r.onError != nil {
			r.onError(err)
		}
	}
}

func (r *Recorder) forward(ctx context.Context, e Entry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("audit logger panicked: %v", p)
		}
	}()
	return r.logger.LogAccess(ctx, e)
}
