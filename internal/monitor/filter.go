package monitor

import (
	"strings"

	"github.com/tracyhatemice/mailsentinel/internal/config"
	"github.com/tracyhatemice/mailsentinel/internal/mailbox"
)

// SelectCandidates returns the messages that belong to the monitored source.
// The sender must contain the account's sender_match string, compared
// case-insensitively. If the account carries a subject whitelist, the subject
// must additionally contain at least one whitelist word; whitelist matching
// is case-sensitive, since the words are deliberate exact tokens chosen by
// the operator. Input order is preserved.
func SelectCandidates(msgs []mailbox.Message, acct config.Account) []mailbox.Message {
	senderMatch := strings.ToLower(acct.SenderMatch)

	var out []mailbox.Message
	for _, msg := range msgs {
		if !strings.Contains(strings.ToLower(msg.Sender), senderMatch) {
			continue
		}
		if len(acct.SubjectAny) > 0 && !subjectMatches(msg.Subject, acct.SubjectAny) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func subjectMatches(subject string, words []string) bool {
	for _, word := range words {
		if strings.Contains(subject, word) {
			return true
		}
	}
	return false
}
