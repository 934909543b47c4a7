package mailbox

import "time"

// Message is one candidate email as seen in the mailbox. Sender, Subject and
// Date come from the message headers; Ref is an opaque handle the monitor
// passes back for post-processing and never interprets itself.
type Message struct {
	Sender  string
	Subject string
	Date    time.Time
	Ref     any
}

// Mailbox reads candidate messages from a remote mail account and applies
// post-processing to messages it previously returned. Implementations are
// bound to one account at construction time.
type Mailbox interface {
	// ListCandidates returns the unread messages in the watched folder,
	// restricted to the account's lookback window.
	ListCandidates() ([]Message, error)

	// MarkRead flags a message returned by ListCandidates as read.
	MarkRead(msg Message) error

	// MoveTo moves a message returned by ListCandidates into the named
	// folder, creating the folder if it does not exist.
	MoveTo(msg Message, folder string) error

	// Close releases any connection held open since ListCandidates.
	Close() error
}
