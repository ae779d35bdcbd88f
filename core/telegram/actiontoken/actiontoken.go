// Package actiontoken encodes admin actions into opaque callback tokens.
//
// A token carries (domain, action, ticket id, subject) in a fixed
// four-field layout so that a stateless button press can be resolved back
// to a specific pending ticket. The field separator is reserved: it cannot
// appear in domain or action keywords (fixed lowercase alphabets), in
// ticket ids (decimal digits plus one dash), or in subjects (a decimal
// chat id). Decoding validates every field instead of guessing, so a
// truncated or foreign callback payload never maps to a plausible action.
package actiontoken

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Domain scopes the action vocabulary of a token.
type Domain string

const (
	// DomainPayment covers payment ticket resolution buttons.
	DomainPayment Domain = "pay"
	// DomainTech covers technical ticket resolution buttons.
	DomainTech Domain = "tech"
	// DomainPanel covers admin panel buttons.
	DomainPanel Domain = "panel"
	// DomainCancel covers cancel buttons attached to admin session prompts.
	DomainCancel Domain = "qcancel"
)

// Action keywords. Kept short: Telegram limits callback data to 64 bytes.
const (
	ActionApproveVIP  = "approve_vip"
	ActionApproveDark = "approve_dark"
	ActionApproveBoth = "approve_both"
	ActionDecline     = "decline"

	ActionReply  = "reply"
	ActionIgnore = "ignore"

	ActionSetVip    = "set_vip"
	ActionSetDark   = "set_dark"
	ActionSetBoth   = "set_both"
	ActionBroadcast = "broadcast"
	ActionInsights  = "insights"

	ActionCancel = "cancel"
)

var domainActions = map[Domain]map[string]struct{}{
	DomainPayment: {
		ActionApproveVIP:  {},
		ActionApproveDark: {},
		ActionApproveBoth: {},
		ActionDecline:     {},
	},
	DomainTech: {
		ActionReply:  {},
		ActionIgnore: {},
	},
	DomainPanel: {
		ActionSetVip:    {},
		ActionSetDark:   {},
		ActionSetBoth:   {},
		ActionBroadcast: {},
		ActionInsights:  {},
	},
	DomainCancel: {
		ActionCancel: {},
	},
}

const (
	sep = ":"
	// MaxLen is the byte ceiling Telegram enforces on callback data.
	MaxLen = 64
)

// ErrBadToken is wrapped by every decode failure.
var ErrBadToken = errors.New("actiontoken: malformed token")

// Token is the decoded form of a callback token.
type Token struct {
	Domain   Domain
	Action   string
	TicketID string
	// Subject carries an optional chat id the action targets (0 = none).
	Subject int64
}

// Encode serialises the token, rejecting values that would be ambiguous or
// exceed the transport's byte ceiling.
func Encode(t Token) (string, error) {
	if _, ok := domainActions[t.Domain]; !ok {
		return "", fmt.Errorf("actiontoken: unknown domain %q", t.Domain)
	}
	if _, ok := domainActions[t.Domain][t.Action]; !ok {
		return "", fmt.Errorf("actiontoken: action %q not allowed in domain %q", t.Action, t.Domain)
	}
	if t.TicketID != "" && !validTicketID(t.TicketID) {
		return "", fmt.Errorf("actiontoken: invalid ticket id %q", t.TicketID)
	}
	subject := ""
	if t.Subject != 0 {
		subject = strconv.FormatInt(t.Subject, 10)
	}
	raw := strings.Join([]string{string(t.Domain), t.Action, t.TicketID, subject}, sep)
	if len(raw) > MaxLen {
		return "", fmt.Errorf("actiontoken: token exceeds %d bytes: %q", MaxLen, raw)
	}
	return raw, nil
}

// Decode parses and validates a token. Any malformed input fails with an
// error wrapping ErrBadToken; it never yields a wrong-but-plausible Token.
func Decode(raw string) (Token, error) {
	if len(raw) > MaxLen {
		return Token{}, fmt.Errorf("%w: oversized payload", ErrBadToken)
	}
	parts := strings.Split(raw, sep)
	if len(parts) != 4 {
		return Token{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrBadToken, len(parts))
	}

	domain := Domain(parts[0])
	actions, ok := domainActions[domain]
	if !ok {
		return Token{}, fmt.Errorf("%w: unknown domain %q", ErrBadToken, parts[0])
	}
	action := parts[1]
	if _, ok := actions[action]; !ok {
		return Token{}, fmt.Errorf("%w: unknown action %q in domain %q", ErrBadToken, action, domain)
	}

	ticketID := parts[2]
	if ticketID != "" && !validTicketID(ticketID) {
		return Token{}, fmt.Errorf("%w: invalid ticket id %q", ErrBadToken, ticketID)
	}

	var subject int64
	if parts[3] != "" {
		n, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return Token{}, fmt.Errorf("%w: invalid subject %q", ErrBadToken, parts[3])
		}
		subject = n
	}

	return Token{Domain: domain, Action: action, TicketID: ticketID, Subject: subject}, nil
}

// validTicketID matches the registry's "<millis>-<seq>" identifier shape.
func validTicketID(id string) bool {
	millis, seq, ok := strings.Cut(id, "-")
	if !ok || millis == "" || seq == "" {
		return false
	}
	return allDigits(millis) && allDigits(seq)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
