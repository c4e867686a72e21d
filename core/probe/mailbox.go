package probe

// DefaultMailboxSize is used when a mailbox is created with a non-positive
// size.
const DefaultMailboxSize = 64

// Mailbox is a process's inbound probe queue. Any goroutine may Put; only
// the owning process reads. Reads never block: an empty mailbox is the
// normal outcome of a poll pass, not an error.
type Mailbox struct {
	ch chan Message
}

// NewMailbox creates a mailbox buffered for size messages.
func NewMailbox(size int) *Mailbox {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	return &Mailbox{ch: make(chan Message, size)}
}

// Put enqueues m. It reports false when the mailbox is full instead of
// blocking the sender's pass.
func (mb *Mailbox) Put(m Message) bool {
	select {
	case mb.ch <- m:
		return true
	default:
		return false
	}
}

// TryGet dequeues the oldest message, if any.
func (mb *Mailbox) TryGet() (Message, bool) {
	select {
	case m := <-mb.ch:
		return m, true
	default:
		return Message{}, false
	}
}

// Len returns the number of queued messages.
func (mb *Mailbox) Len() int { return len(mb.ch) }
