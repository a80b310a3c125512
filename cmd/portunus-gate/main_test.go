package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gate/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORTUNUS_ENV", "PORTUNUS_AUTH_MODE", "PORTUNUS_LOGGER_MODE", "PORTUNUS_LEGACY_ONLINE_CARD",
		"PORTUNUS_FIXTURES", "PORTUNUS_DENYLIST", "PORTUNUS_EVENT_STORE", "PORTUNUS_DB_PATH",
		"PORTUNUS_LOG_LEVEL", "PORTUNUS_LOG_FORMAT", "PORTUNUS_EVENT_RETENTION_DAYS",
		"PORTUNUS_PRUNE_INTERVAL_HOURS",
	} {
		t.Setenv(k, "")
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		rows = append(rows, m)
	}
	return rows
}

func TestRun_Auth(t *testing.T) {
	clearEnv(t)

	out, err := runCLI(t, "", "auth", "--identity", "alice", "--mode", "physical-biometry", "--sample", "1,2,3,4")
	require.NoError(t, err)

	rows := decodeLines(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0]["success"])
	assert.Equal(t, "physical-biometry", rows[0]["mode"])
}

func TestRun_AuthUsesDefaultMode(t *testing.T) {
	clearEnv(t)

	out, err := runCLI(t, "", "--auth-mode", "physical-card", "auth", "--identity", "bob", "--card", "CARD-200")
	require.NoError(t, err)

	rows := decodeLines(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0]["success"])
	assert.Equal(t, "physical-card", rows[0]["mode"])
}

func TestRun_AuthSampleOutOfRange(t *testing.T) {
	clearEnv(t)

	_, err := runCLI(t, "", "auth", "--identity", "alice", "--sample", "1,300")
	require.Error(t, err)
}

func TestRun_Serve(t *testing.T) {
	clearEnv(t)

	stdin := strings.Join([]string{
		`{"identity":"alice","mode":"online-card","card_id":"CARD-200"}`,
		``,
		`{"identity":"mallory","mode":"teleport"}`,
		`not json`,
		`{"identity":"eve","mode":"online-biometry","sample":[9,9,9,9]}`,
	}, "\n")

	out, err := runCLI(t, stdin, "serve")
	require.NoError(t, err)

	rows := decodeLines(t, out)
	require.Len(t, rows, 4)
	assert.Equal(t, false, rows[0]["success"])
	assert.Equal(t, "card does not belong to the presented user", rows[0]["message"])
	assert.Equal(t, "deny", rows[1]["mode"])
	assert.Equal(t, false, rows[1]["success"])
	assert.Contains(t, rows[2]["message"], "malformed request")
	assert.Equal(t, true, rows[3]["success"])
}

func TestRun_ServeOversizedLineDoesNotEndStream(t *testing.T) {
	clearEnv(t)

	huge := `{"identity":"` + strings.Repeat("x", maxRequestLine) + `"}`
	stdin := huge + "\n" + `{"identity":"eve","mode":"online-biometry","sample":[9,9,9,9]}` + "\n"

	out, err := runCLI(t, stdin, "serve")
	require.NoError(t, err)

	rows := decodeLines(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, false, rows[0]["success"])
	assert.Contains(t, rows[0]["message"], "exceeds")
	assert.Equal(t, true, rows[1]["success"])
}

func TestReadRequestLines_SplitsAndFlagsLongLines(t *testing.T) {
	in := "short\n" + strings.Repeat("y", 40) + "\nlast"
	out := make(chan requestLine, 8)
	require.NoError(t, readRequestLines(context.Background(), strings.NewReader(in), 16, out))
	close(out)

	var got []requestLine
	for l := range out {
		got = append(got, l)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "short\n", string(got[0].b))
	assert.True(t, got[1].tooLong)
	assert.Nil(t, got[1].b)
	assert.Equal(t, "last", string(got[2].b))
}

func TestRun_RegisterAndListWithSQLite(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "gate.db")
	global := []string{"--env", "prod", "--event-store", "sqlite", "--db", dbPath}

	out, err := runCLI(t, "", append(global, "register", "--badge", "B-7", "--area", "dock", "--granted", "--at", "2026-03-01T08:00:00Z")...)
	require.NoError(t, err)
	rows := decodeLines(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0]["id"])

	out, err = runCLI(t, "", append(global, "list", "--badge", "b-7")...)
	require.NoError(t, err)
	rows = decodeLines(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "dock", rows[0]["area_name"])
	assert.Equal(t, true, rows[0]["access_granted"])

	out, err = runCLI(t, "", append(global, "remove", "--id", "1")...)
	require.NoError(t, err)
	assert.Equal(t, true, decodeLines(t, out)[0]["removed"])
}

func TestRun_RegisterValidation(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "", "register", "--badge", " ", "--area", "dock")
	require.Error(t, err)
}

func TestRun_PruneNeedsRetention(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, "", "prune")
	require.Error(t, err)

	out, err := runCLI(t, "", "--retention-days", "30", "prune")
	require.NoError(t, err)
	assert.Equal(t, float64(0), decodeLines(t, out)[0]["deleted"])
}

func TestRun_ConfigurationErrorFailsFast(t *testing.T) {
	clearEnv(t)

	_, err := runCLI(t, "", "--logger-mode", "syslog", "list")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
}

func TestRun_UnknownCommand(t *testing.T) {
	clearEnv(t)

	_, err := runCLI(t, "", "teleport")
	require.ErrorContains(t, err, "unknown command")

	_, err = runCLI(t, "")
	require.ErrorContains(t, err, "no command")
}
