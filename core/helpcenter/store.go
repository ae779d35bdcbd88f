package helpcenter

// Store is the durable container for the state document.
//
// Load never fails: a missing or unreadable document yields DefaultState
// with the failure logged, so the bot always starts. Save is the only path
// to disk; a failed save is logged and the in-memory document remains the
// source of truth.
type Store interface {
	Load() *State
	Save(*State) error
	Close() error
}
