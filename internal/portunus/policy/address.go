package policy

import "strings"

// DefaultDenylist is the built-in set of high-risk client addresses.
var DefaultDenylist = []string{"10.0.0.66", "203.0.113.66"}

// AddressPolicy flags client addresses found on a fixed denylist.  It is
// immutable after construction.
type AddressPolicy struct {
	deny map[string]struct{}
}

// NewAddressPolicy builds a policy from addrs.  Blank entries are ignored.
func NewAddressPolicy(addrs ...string) *AddressPolicy {
	p := &AddressPolicy{deny: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a != "" {
			p.deny[a] = struct{}{}
		}
	}
	return p
}

// DefaultAddressPolicy returns a policy over DefaultDenylist.
func DefaultAddressPolicy() *AddressPolicy {
	return NewAddressPolicy(DefaultDenylist...)
}

// IsSuspicious reports whether addr is denylisted.  An empty address is
// never suspicious.  A nil policy uses the default denylist.
func (p *AddressPolicy) IsSuspicious(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	if p == nil {
		p = defaultPolicy
	}
	_, ok := p.deny[addr]
	return ok
}

// Len returns the denylist size.
func (p *AddressPolicy) Len() int {
	if p == nil {
		return len(defaultPolicy.deny)
	}
	return len(p.deny)
}

var defaultPolicy = DefaultAddressPolicy()

// IsAddressSuspicious checks addr against the default denylist.
func IsAddressSuspicious(addr string) bool {
	return defaultPolicy.IsSuspicious(addr)
}
