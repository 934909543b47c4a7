package mailbox

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	pop3client "github.com/knadh/go-pop3"
)

// POP3Mailbox reads candidates over POP3/POP3S. POP3 carries no read flags
// and no folders, so every message in the lookback window is a candidate and
// post-processing is not available.
type POP3Mailbox struct {
	host         string
	port         int
	username     string
	password     string
	useTLS       bool
	lookbackDays int
	logger       *slog.Logger
}

// NewPOP3 creates a new POP3 mailbox reader.
func NewPOP3(host string, port int, username, password string, useTLS bool, lookbackDays int, logger *slog.Logger) *POP3Mailbox {
	return &POP3Mailbox{
		host:         host,
		port:         port,
		username:     username,
		password:     password,
		useTLS:       useTLS,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

func (m *POP3Mailbox) ListCandidates() ([]Message, error) {
	addr := net.JoinHostPort(m.host, fmt.Sprintf("%d", m.port))

	opt := pop3client.Opt{
		Host:       m.host,
		Port:       m.port,
		TLSEnabled: m.useTLS,
	}

	client := pop3client.New(opt)
	conn, err := client.NewConn()
	if err != nil {
		return nil, fmt.Errorf("pop3 connect %s: %w", addr, err)
	}
	defer conn.Quit()

	if err := conn.Auth(m.username, m.password); err != nil {
		return nil, fmt.Errorf("pop3 auth %s: %w", m.username, err)
	}

	listing, err := conn.List(0)
	if err != nil {
		return nil, fmt.Errorf("pop3 list: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -m.lookbackDays)
	var msgs []Message

	for _, entry := range listing {
		rawBuf, err := conn.RetrRaw(entry.ID)
		if err != nil {
			m.logger.Warn("pop3 retrieve failed", "msg_id", entry.ID, "error", err)
			continue
		}

		sender, subject, date := parseHeaders(rawBuf.Bytes())
		if date.IsZero() || date.Before(cutoff) {
			continue
		}

		msgs = append(msgs, Message{
			Sender:  sender,
			Subject: subject,
			Date:    date,
			Ref:     entry.ID,
		})
	}

	m.logger.Debug("listed messages", "count", len(msgs))
	return msgs, nil
}

// MarkRead is not available over POP3.
func (m *POP3Mailbox) MarkRead(msg Message) error {
	return fmt.Errorf("pop3 has no read flags")
}

// MoveTo is not available over POP3.
func (m *POP3Mailbox) MoveTo(msg Message, folder string) error {
	return fmt.Errorf("pop3 has no folders")
}

func (m *POP3Mailbox) Close() error {
	return nil
}

// parseHeaders extracts sender address, subject and date from raw email bytes.
func parseHeaders(raw []byte) (sender, subject string, date time.Time) {
	reader, err := mail.CreateReader(strings.NewReader(string(raw)))
	if err != nil {
		return "", "", time.Time{}
	}
	defer reader.Close()

	if addrs, err := reader.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		sender = addrs[0].Address
	}
	subject, _ = reader.Header.Subject()
	date, _ = reader.Header.Date()
	return sender, subject, date
}
