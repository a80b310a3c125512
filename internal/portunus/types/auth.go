package types

import "strings"

// AuthMode is the declared authentication channel. The zero value is
// ModeDeny so an unset mode never authenticates.
type AuthMode int

const (
	ModeDeny AuthMode = iota
	ModePhysicalBiometry
	ModePhysicalCard
	ModeOnlineBiometry
	ModeOnlineCard
)

var modeNames = map[AuthMode]string{
	ModeDeny:             "deny",
	ModePhysicalBiometry: "physical-biometry",
	ModePhysicalCard:     "physical-card",
	ModeOnlineBiometry:   "online-biometry",
	ModeOnlineCard:       "online-card",
}

// String returns the configuration key for the mode.
func (m AuthMode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return "unknown"
}

// IsPhysical reports whether the mode belongs to the physical family.
func (m AuthMode) IsPhysical() bool {
	return m == ModePhysicalBiometry || m == ModePhysicalCard
}

// IsOnline reports whether the mode belongs to the online family.
func (m AuthMode) IsOnline() bool {
	return m == ModeOnlineBiometry || m == ModeOnlineCard
}

// LookupMode maps a configuration key to a mode. Matching is
// case-insensitive and ignores surrounding whitespace.
func LookupMode(name string) (AuthMode, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range modeNames {
		if n == name {
			return m, true
		}
	}
	return ModeDeny, false
}

// AuthRequest is built by the caller and never mutated by the pipeline.
// Empty CardID, nil BiometricSample and empty ClientAddress mean absent.
type AuthRequest struct {
	Identity        string   `json:"identity"`
	CardID          string   `json:"card_id,omitempty"`
	BiometricSample []byte   `json:"biometric_sample,omitempty"`
	ClientAddress   string   `json:"client_address,omitempty"`
	Mode            AuthMode `json:"mode"`
}

// AuthResult is produced exactly once per dispatch. Message is always
// human-readable. Reason is nil on success and carries the failure
// classification otherwise.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  error  `json:"-"`
}

// Ok builds a successful result.
func Ok(msg string) AuthResult {
	if msg == "" {
		msg = "authenticated"
	}
	return AuthResult{Success: true, Message: msg}
}

// Fail builds a failed result carrying reason.
func Fail(reason error, msg string) AuthResult {
	if msg == "" {
		msg = "denied"
	}
	return AuthResult{Success: false, Message: msg, Reason: reason}
}
