package chat

// Role identifies who authored a conversation message. The set is closed:
// scoring and summarization switch exhaustively over it.
type Role int

const (
	// RoleDirective is a system-authored instruction that frames the
	// model's behavior. Directive content anchors the window and is
	// protected from eviction.
	RoleDirective Role = iota
	// RoleUser is a turn written by the end user.
	RoleUser
	// RoleAgent is a reply generated by the model.
	RoleAgent
)

func (r Role) String() string {
	switch r {
	case RoleDirective:
		return "directive"
	case RoleUser:
		return "user"
	case RoleAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// Message is an immutable conversation entry. Seq records the message's
// position in the original chronological order; it survives compression and
// reordering so recency scoring and tie-breaking stay stable.
type Message struct {
	Role    Role
	Content string
	Seq     int
}

// NewWindow stamps sequence numbers onto a chronologically ordered slice of
// messages and returns it as a fresh window. Callers assemble a window per
// turn from durable history plus the new turn; the optimizer never retains it.
func NewWindow(messages []Message) []Message {
	window := make([]Message, len(messages))
	copy(window, messages)
	for i := range window {
		window[i].Seq = i
	}
	return window
}
