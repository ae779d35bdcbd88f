package helpcenter

import "time"

// FlowState describes what a user's next message means to the bot.
type FlowState string

const (
	// FlowIdle indicates the user has no submission in progress.
	FlowIdle FlowState = ""
	// FlowAwaitingPayment indicates the user was asked for payment evidence.
	FlowAwaitingPayment FlowState = "awaiting_payment"
	// FlowAwaitingTech indicates the user was asked to describe a technical issue.
	FlowAwaitingTech FlowState = "awaiting_tech"
)

// ServiceKind identifies the paid service a payment refers to.
type ServiceKind string

const (
	ServiceNone ServiceKind = ""
	ServiceVIP  ServiceKind = "vip"
	ServiceDark ServiceKind = "dark"
	ServiceBoth ServiceKind = "both"
)

// TicketKind separates payment evidence from technical issue reports.
type TicketKind string

const (
	TicketPayment TicketKind = "payment"
	TicketTech    TicketKind = "tech"
)

// UserRecord tracks a user that contacted the bot. Records are created on
// first contact and never deleted. LastService is meaningful only while
// LastAction is FlowAwaitingPayment.
type UserRecord struct {
	ID          int64       `json:"id"`
	DisplayName string      `json:"display_name"`
	LastAction  FlowState   `json:"last_action,omitempty"`
	LastService ServiceKind `json:"last_service,omitempty"`
}

// PendingTicket is a submitted issue awaiting admin action. A ticket is
// removed exactly once, by the action that resolves it. Tech tickets carry
// no service.
type PendingTicket struct {
	ID        string      `json:"id"`
	Kind      TicketKind  `json:"kind"`
	UserID    int64       `json:"user_id"`
	Service   ServiceKind `json:"service,omitempty"`
	Text      string      `json:"text,omitempty"`
	HasMedia  bool        `json:"has_media,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Counters accumulate submission and delivery statistics. All values only
// ever grow.
type Counters struct {
	PaymentSubmitted uint64 `json:"payment_submitted"`
	TechSubmitted    uint64 `json:"tech_submitted"`
	LinksSent        uint64 `json:"links_sent"`
}

// State is the persisted document owning every durable entity.
type State struct {
	Users    map[int64]*UserRecord     `json:"users"`
	Pending  map[string]*PendingTicket `json:"pending"`
	VipLink  string                    `json:"vip_link"`
	DarkLink string                    `json:"dark_link"`
	Counters Counters                  `json:"counters"`
}

// DefaultState returns the document used on first run or after a corrupted load.
func DefaultState() *State {
	return &State{
		Users:   make(map[int64]*UserRecord),
		Pending: make(map[string]*PendingTicket),
	}
}

// normalize repairs nil maps after deserialization so callers never check.
func (s *State) normalize() {
	if s.Users == nil {
		s.Users = make(map[int64]*UserRecord)
	}
	if s.Pending == nil {
		s.Pending = make(map[string]*PendingTicket)
	}
}

// AdminMode enumerates the multi-step interactions an admin can be in.
type AdminMode string

const (
	ModeSetVip     AdminMode = "set_vip"
	ModeSetDark    AdminMode = "set_dark"
	ModeSetBoth    AdminMode = "set_both"
	ModeBroadcast  AdminMode = "broadcast"
	ModeQuickReply AdminMode = "quick_reply"
)

// AdminSession is an admin's single active interaction mode. The next
// free-text message from the admin is consumed as the session payload.
type AdminSession struct {
	AdminID      int64
	Mode         AdminMode
	TargetUserID int64
	TicketID     string
	StartedAt    time.Time
}
