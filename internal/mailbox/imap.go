package mailbox

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPMailbox reads candidates over IMAP/IMAPS. The connection is opened by
// ListCandidates and kept until Close so that post-processing can act on the
// UIDs returned in the same cycle.
type IMAPMailbox struct {
	host         string
	port         int
	username     string
	password     string
	useTLS       bool
	folder       string
	lookbackDays int
	logger       *slog.Logger

	client *imapclient.Client
}

// NewIMAP creates a new IMAP mailbox reader.
func NewIMAP(host string, port int, username, password string, useTLS bool, folder string, lookbackDays int, logger *slog.Logger) *IMAPMailbox {
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPMailbox{
		host:         host,
		port:         port,
		username:     username,
		password:     password,
		useTLS:       useTLS,
		folder:       folder,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

func (m *IMAPMailbox) ListCandidates() ([]Message, error) {
	client, err := m.connect()
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -m.lookbackDays)
	searchCriteria := &imap.SearchCriteria{
		Since:   since,
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(searchCriteria, nil).Wait()
	if err != nil {
		m.dropConn()
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		m.logger.Debug("no unread messages in date range", "folder", m.folder)
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)
	fetchOptions := &imap.FetchOptions{
		UID:      true,
		Envelope: true,
	}

	buffers, err := client.Fetch(uidSet, fetchOptions).Collect()
	if err != nil {
		m.dropConn()
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	var msgs []Message
	for _, buf := range buffers {
		if buf.Envelope == nil {
			m.logger.Warn("message without envelope, skipping", "uid", buf.UID)
			continue
		}
		var sender string
		if len(buf.Envelope.From) > 0 {
			sender = buf.Envelope.From[0].Addr()
		}
		msgs = append(msgs, Message{
			Sender:  sender,
			Subject: buf.Envelope.Subject,
			Date:    buf.Envelope.Date,
			Ref:     buf.UID,
		})
	}

	m.logger.Debug("listed unread messages", "folder", m.folder, "count", len(msgs))
	return msgs, nil
}

func (m *IMAPMailbox) MarkRead(msg Message) error {
	uid, err := m.uidOf(msg)
	if err != nil {
		return err
	}
	if m.client == nil {
		return fmt.Errorf("imap mark read: no connection")
	}

	store := &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Flags:  []imap.Flag{imap.FlagSeen},
		Silent: true,
	}
	if err := m.client.Store(imap.UIDSetNum(uid), store, nil).Close(); err != nil {
		return fmt.Errorf("imap store \\Seen uid %d: %w", uid, err)
	}
	return nil
}

func (m *IMAPMailbox) MoveTo(msg Message, folder string) error {
	uid, err := m.uidOf(msg)
	if err != nil {
		return err
	}
	if m.client == nil {
		return fmt.Errorf("imap move: no connection")
	}

	if err := m.ensureFolder(folder); err != nil {
		return err
	}
	if _, err := m.client.Move(imap.UIDSetNum(uid), folder).Wait(); err != nil {
		return fmt.Errorf("imap move uid %d to %s: %w", uid, folder, err)
	}
	return nil
}

func (m *IMAPMailbox) Close() error {
	if m.client == nil {
		return nil
	}
	client := m.client
	m.client = nil

	if err := client.Logout().Wait(); err != nil {
		m.logger.Warn("imap logout failed", "error", err)
	}
	return client.Close()
}

// dropConn discards a connection that errored mid-command so the next
// ListCandidates re-dials instead of reusing a dead client.
func (m *IMAPMailbox) dropConn() {
	if m.client == nil {
		return
	}
	m.client.Close()
	m.client = nil
}

func (m *IMAPMailbox) connect() (*imapclient.Client, error) {
	if m.client != nil {
		return m.client, nil
	}

	addr := net.JoinHostPort(m.host, fmt.Sprintf("%d", m.port))

	var client *imapclient.Client
	var err error

	if m.useTLS {
		client, err = imapclient.DialTLS(addr, &imapclient.Options{
			TLSConfig: &tls.Config{ServerName: m.host},
		})
	} else {
		client, err = imapclient.DialInsecure(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("imap connect %s: %w", addr, err)
	}

	if err := client.Login(m.username, m.password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("imap login %s: %w", m.username, err)
	}

	if _, err := client.Select(m.folder, nil).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("imap select %s: %w", m.folder, err)
	}

	m.client = client
	return client, nil
}

func (m *IMAPMailbox) ensureFolder(folder string) error {
	err := m.client.Create(folder, nil).Wait()
	if err == nil {
		m.logger.Info("imap folder created", "folder", folder)
		return nil
	}

	var respErr *imap.Error
	if errors.As(err, &respErr) && respErr.Code == imap.ResponseCodeAlreadyExists {
		return nil
	}
	return fmt.Errorf("ensure folder %s: %w", folder, err)
}

func (m *IMAPMailbox) uidOf(msg Message) (imap.UID, error) {
	uid, ok := msg.Ref.(imap.UID)
	if !ok {
		return 0, fmt.Errorf("message ref is not an imap uid: %T", msg.Ref)
	}
	return uid, nil
}
