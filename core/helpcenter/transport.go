package helpcenter

// MediaKind distinguishes forwardable attachment types.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
)

// MediaRef points at an already-uploaded attachment on the transport side.
// It is forwarded to admins but never persisted.
type MediaRef struct {
	Kind   MediaKind
	FileID string
}

// Button is an inline button whose Data round-trips verbatim through the
// transport and back into the workflow.
type Button struct {
	Text string
	Data string
}

// Message is an outbound notification. Buttons are laid out row by row.
type Message struct {
	Text    string
	Media   *MediaRef
	Buttons [][]Button
}

// Transport delivers outbound messages. Implementations impose their own
// per-call timeout; the workflow imposes none.
type Transport interface {
	Send(recipient int64, msg Message) error
}
