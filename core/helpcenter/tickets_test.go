package helpcenter

import (
	"errors"
	"testing"
	"time"
)

func TestTicketIDsDistinctWithinSameMillisecond(t *testing.T) {
	frozen := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	reg := ticketRegistry{now: func() time.Time { return frozen }}
	st := DefaultState()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := reg.create(st, PendingTicket{Kind: TicketTech, UserID: 1})
		if seen[id] {
			t.Fatalf("duplicate ticket id %s", id)
		}
		seen[id] = true
	}
}

func TestTicketResolveIsOneShot(t *testing.T) {
	reg := ticketRegistry{now: time.Now}
	st := DefaultState()
	id := reg.create(st, PendingTicket{Kind: TicketPayment, UserID: 7})

	got, err := reg.resolve(st, id)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.UserID != 7 {
		t.Fatalf("resolved wrong ticket: %+v", got)
	}
	if _, err := reg.resolve(st, id); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("second resolve: expected ErrTicketNotFound, got %v", err)
	}
}

func TestTicketIDEncodesInTokens(t *testing.T) {
	reg := ticketRegistry{now: time.Now}
	st := DefaultState()
	id := reg.create(st, PendingTicket{Kind: TicketPayment, UserID: 7})

	msg := ticketNotification(*st.Pending[id], "Bob", nil)
	if len(msg.Buttons) == 0 {
		t.Fatal("expected resolution buttons")
	}
	for _, row := range msg.Buttons {
		for _, btn := range row {
			if btn.Data == "" {
				t.Fatalf("button %q has empty callback data", btn.Text)
			}
		}
	}
}
