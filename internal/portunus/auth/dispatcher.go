package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// PostProcessor observes a successful authentication.  It cannot change
// the result already produced.
type PostProcessor func(ctx context.Context, req types.AuthRequest, res types.AuthResult)

// Observer sees every result the dispatcher returns, denials and
// validation failures included.  Like a PostProcessor it cannot change it.
type Observer func(ctx context.Context, req types.AuthRequest, res types.AuthResult)

// Dispatcher runs the shared pipeline: pre-validation, the strategy for the
// request's mode, then post-processing on success.  The mode table is fixed
// at composition time; Authenticate is safe for concurrent use once
// composition is done.
type Dispatcher struct {
	strategies map[types.AuthMode]Strategy
	post       []PostProcessor
	observers  []Observer
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPostProcess appends hooks run after every successful authentication.
func WithPostProcess(hooks ...PostProcessor) Option {
	return func(d *Dispatcher) {
		for _, h := range hooks {
			if h != nil {
				d.post = append(d.post, h)
			}
		}
	}
}

// WithObserver appends observers run after every authentication, whatever
// the outcome.  Observers run after post-processing.
func WithObserver(obs ...Observer) Option {
	return func(d *Dispatcher) {
		for _, o := range obs {
			if o != nil {
				d.observers = append(d.observers, o)
			}
		}
	}
}

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher copies strategies into its own table.  ModeDeny always maps
// to DenyStrategy regardless of what the caller passes.
func NewDispatcher(strategies map[types.AuthMode]Strategy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		strategies: make(map[types.AuthMode]Strategy, len(strategies)+1),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for m, s := range strategies {
		if s != nil {
			d.strategies[m] = s
		}
	}
	d.strategies[types.ModeDeny] = DenyStrategy
	for _, o := range opts {
		o(d)
	}
	return d
}

// Register binds mode to s.  Call it only while composing, before the
// dispatcher serves requests.  ModeDeny cannot be rebound.
func (d *Dispatcher) Register(mode types.AuthMode, s Strategy) {
	if mode == types.ModeDeny || s == nil {
		return
	}
	d.strategies[mode] = s
}

// Authenticate runs the pipeline for req and returns its single result.
func (d *Dispatcher) Authenticate(ctx context.Context, req types.AuthRequest) types.AuthResult {
	res := d.authenticate(ctx, req)
	d.observe(ctx, req, res)
	return res
}

func (d *Dispatcher) authenticate(ctx context.Context, req types.AuthRequest) types.AuthResult {
	if res, ok := preValidate(req); !ok {
		d.logger.DebugContext(ctx, "auth pre-validation failed",
			slog.String("mode", req.Mode.String()),
			slog.String("reason", res.Message),
		)
		return res
	}

	res := d.resolve(req.Mode)(ctx, req)
	if !res.Success {
		d.logger.InfoContext(ctx, "auth denied",
			slog.String("identity", req.Identity),
			slog.String("mode", req.Mode.String()),
			slog.String("reason", res.Message),
		)
		return res
	}

	d.postProcess(ctx, req, res)
	return res
}

// AuthenticatePtr is Authenticate for callers holding an optional request.
func (d *Dispatcher) AuthenticatePtr(ctx context.Context, req *types.AuthRequest) types.AuthResult {
	if req == nil {
		return types.Fail(ErrValidation, "request missing")
	}
	return d.Authenticate(ctx, *req)
}

func (d *Dispatcher) resolve(mode types.AuthMode) Strategy {
	if s, ok := d.strategies[mode]; ok {
		return s
	}
	return DenyStrategy
}

func preValidate(req types.AuthRequest) (types.AuthResult, bool) {
	if strings.TrimSpace(req.Identity) == "" {
		return types.Fail(ErrValidation, "identity missing"), false
	}
	return types.AuthResult{}, true
}

// postProcess runs every hook.  A panicking hook is logged and skipped; it
// never overturns the result.
func (d *Dispatcher) postProcess(ctx context.Context, req types.AuthRequest, res types.AuthResult) {
	for _, h := range d.post {
		d.safeCall(ctx, "auth post-process hook panicked", req, func() { h(ctx, req, res) })
	}
}

func (d *Dispatcher) observe(ctx context.Context, req types.AuthRequest, res types.AuthResult) {
	for _, o := range d.observers {
		d.safeCall(ctx, "auth observer panicked", req, func() { o(ctx, req, res) })
	}
}

func (d *Dispatcher) safeCall(ctx context.Context, msg string, req types.AuthRequest, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WarnContext(ctx, msg,
				slog.String("identity", req.Identity),
				slog.Any("panic", r),
			)
		}
	}()
	fn()
}
