package actiontoken

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tokens := []Token{
		{Domain: DomainPayment, Action: ActionApproveVIP, TicketID: "1756600000000-1"},
		{Domain: DomainPayment, Action: ActionApproveBoth, TicketID: "1756600000000-42"},
		{Domain: DomainPayment, Action: ActionDecline, TicketID: "1-1"},
		{Domain: DomainTech, Action: ActionReply, TicketID: "1756600000001-3", Subject: 987654321},
		{Domain: DomainTech, Action: ActionIgnore, TicketID: "1756600000001-4"},
		{Domain: DomainPanel, Action: ActionSetVip},
		{Domain: DomainPanel, Action: ActionBroadcast},
		{Domain: DomainCancel, Action: ActionCancel, TicketID: "1756600000001-3", Subject: -100123},
	}
	for _, want := range tokens {
		raw, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", want, err)
		}
		if len(raw) > MaxLen {
			t.Fatalf("Encode(%+v) produced %d bytes, limit %d", want, len(raw), MaxLen)
		}
		got, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	cases := []Token{
		{Domain: "mystery", Action: ActionDecline, TicketID: "1-1"},
		{Domain: DomainPayment, Action: ActionIgnore, TicketID: "1-1"}, // tech action in pay domain
		{Domain: DomainPayment, Action: ActionDecline, TicketID: "not:an:id"},
		{Domain: DomainPayment, Action: ActionDecline, TicketID: "12345"},
	}
	for _, tok := range cases {
		if _, err := Encode(tok); err == nil {
			t.Fatalf("Encode(%+v) succeeded, expected error", tok)
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"pay",
		"pay:decline",
		"pay:decline:1-1",              // three fields
		"pay:decline:1-1:77:extra",     // five fields
		"mystery:decline:1-1:",         // unknown domain
		"pay:launch:1-1:",              // unknown action
		"tech:decline:1-1:",            // action from wrong domain
		"pay:decline:abc-1:",           // non-digit ticket id
		"pay:decline:1-1:not_a_number", // bad subject
		"pay:decline:1-1-1:",           // two dashes
		strings.Repeat("x", MaxLen+1),  // oversized
		"\fissue_payment|",             // telebot unique payload, not a token
	}
	for _, raw := range cases {
		if _, err := Decode(raw); !errors.Is(err, ErrBadToken) {
			t.Fatalf("Decode(%q) = %v, expected ErrBadToken", raw, err)
		}
	}
}
