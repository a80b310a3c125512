package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/BrandonDHaskell/Portunus/gate/internal/app"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

type command struct {
	run func(ctx context.Context, gate *app.App, args []string, stdin io.Reader, stdout io.Writer) error
}

var commands = map[string]command{
	"auth":     {run: runAuth},
	"serve":    {run: runServe},
	"register": {run: runRegister},
	"list":     {run: runList},
	"remove":   {run: runRemove},
	"prune":    {run: runPrune},
}

// authLine is the JSON shape of one request on the serve stream and of the
// auth command's flags.
type authLine struct {
	Identity string `json:"identity"`
	Mode     string `json:"mode,omitempty"`
	CardID   string `json:"card_id,omitempty"`
	Sample   []int  `json:"sample,omitempty"`
	Address  string `json:"client_address,omitempty"`
}

func (l authLine) request(def types.AuthMode) (types.AuthRequest, error) {
	sample, err := sampleBytes(l.Sample)
	if err != nil {
		return types.AuthRequest{}, err
	}
	mode := def
	if strings.TrimSpace(l.Mode) != "" {
		// Unrecognized names fall through to deny.
		mode, _ = types.LookupMode(l.Mode)
	}
	return types.AuthRequest{
		Identity:        l.Identity,
		CardID:          l.CardID,
		BiometricSample: sample,
		ClientAddress:   l.Address,
		Mode:            mode,
	}, nil
}

type authOutput struct {
	Identity string `json:"identity"`
	Mode     string `json:"mode"`
	types.AuthResult
}

func runAuth(ctx context.Context, gate *app.App, args []string, _ io.Reader, stdout io.Writer) error {
	var line authLine
	fs := pflag.NewFlagSet("auth", pflag.ContinueOnError)
	fs.StringVar(&line.Identity, "identity", "", "principal identity")
	fs.StringVar(&line.Mode, "mode", gate.DefaultMode.String(), "authentication mode")
	fs.StringVar(&line.CardID, "card", "", "presented card id")
	fs.IntSliceVar(&line.Sample, "sample", nil, "biometric sample bytes, e.g. 1,2,3,4")
	fs.StringVar(&line.Address, "address", "", "client address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := line.request(gate.DefaultMode)
	if err != nil {
		return err
	}
	res := gate.Dispatcher.Authenticate(ctx, req)
	return writeJSON(stdout, authOutput{Identity: req.Identity, Mode: req.Mode.String(), AuthResult: res})
}

// runServe answers one JSON line per request until stdin closes or ctx is
// cancelled.  The pruner runs for the lifetime of the stream.
func runServe(ctx context.Context, gate *app.App, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	gate.Start(ctx)

	lines := make(chan requestLine)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		readErr <- readRequestLines(ctx, stdin, maxRequestLine, lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if line.tooLong {
				if err := writeJSON(stdout, map[string]any{
					"success": false,
					"message": fmt.Sprintf("request exceeds %d bytes", maxRequestLine),
				}); err != nil {
					return err
				}
				continue
			}
			if len(bytes.TrimSpace(line.b)) == 0 {
				continue
			}
			if err := serveLine(ctx, gate, line.b, stdout); err != nil {
				return err
			}
		}
	}
}

// maxRequestLine caps one serve request.  A longer line is answered with a
// failure and skipped; the stream continues.
const maxRequestLine = 1 << 20

type requestLine struct {
	b       []byte
	tooLong bool
}

// readRequestLines sends each newline-terminated line of r to out.  Lines
// longer than limit are drained without buffering and sent as tooLong.
func readRequestLines(ctx context.Context, r io.Reader, limit int, out chan<- requestLine) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		var line requestLine
		for {
			chunk, err := br.ReadSlice('\n')
			if !line.tooLong {
				line.b = append(line.b, chunk...)
				if len(bytes.TrimRight(line.b, "\r\n")) > limit {
					line = requestLine{tooLong: true}
				}
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}

			if len(line.b) > 0 || line.tooLong {
				select {
				case out <- line:
				case <-ctx.Done():
					return nil
				}
			}
			if err != nil {
				return nil
			}
			break
		}
	}
}

func serveLine(ctx context.Context, gate *app.App, b []byte, stdout io.Writer) error {
	var line authLine
	if err := json.Unmarshal(b, &line); err != nil {
		return writeJSON(stdout, map[string]any{"success": false, "message": "malformed request: " + err.Error()})
	}
	req, err := line.request(gate.DefaultMode)
	if err != nil {
		return writeJSON(stdout, map[string]any{"success": false, "message": err.Error()})
	}
	res := gate.Dispatcher.Authenticate(ctx, req)
	return writeJSON(stdout, authOutput{Identity: req.Identity, Mode: req.Mode.String(), AuthResult: res})
}

func runRegister(ctx context.Context, gate *app.App, args []string, _ io.Reader, stdout io.Writer) error {
	var (
		badge, area, at string
		granted         bool
	)
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	fs.StringVar(&badge, "badge", "", "badge id")
	fs.StringVar(&area, "area", "", "area name")
	fs.BoolVar(&granted, "granted", false, "whether access was granted")
	fs.StringVar(&at, "at", "", "RFC 3339 timestamp (default: now)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var ts time.Time
	if at != "" {
		var err error
		if ts, err = time.Parse(time.RFC3339, at); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	ev, err := gate.Events.RegisterAccessEvent(ctx, badge, area, ts, granted)
	if err != nil {
		return err
	}
	return writeJSON(stdout, ev)
}

func runList(ctx context.Context, gate *app.App, args []string, _ io.Reader, stdout io.Writer) error {
	var badge string
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.StringVar(&badge, "badge", "", "only events for this badge (case-insensitive)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		events []types.AccessEvent
		err    error
	)
	if strings.TrimSpace(badge) != "" {
		events, err = gate.Events.ListAccessEventsByBadge(ctx, badge)
	} else {
		events, err = gate.Events.ListAccessEvents(ctx)
	}
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := writeJSON(stdout, ev); err != nil {
			return err
		}
	}
	return nil
}

func runRemove(ctx context.Context, gate *app.App, args []string, _ io.Reader, stdout io.Writer) error {
	var id int64
	fs := pflag.NewFlagSet("remove", pflag.ContinueOnError)
	fs.Int64Var(&id, "id", 0, "access event id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	removed, err := gate.Events.RemoveAccessEvent(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]any{"id": id, "removed": removed})
}

func runPrune(ctx context.Context, gate *app.App, args []string, _ io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("prune", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if gate.Config.EventRetentionDays <= 0 {
		return fmt.Errorf("prune needs --retention-days > 0")
	}

	deleted, err := gate.Pruner.PruneNow(ctx)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]any{"deleted": deleted})
}

func sampleBytes(vals []int) ([]byte, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("sample byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
