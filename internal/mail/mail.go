// Package mail provides the outbound email capability consumed by the
// notification reconciler. The transport itself is a thin collaborator:
// callers only depend on the Sender interface.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Sender dispatches one email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(to, subject, body string, isHTML bool) error
}

// SMTPSender sends mail through an SMTP relay with PLAIN authentication.
type SMTPSender struct {
	host     string
	port     string
	from     string
	username string
	password string
}

// NewSMTPSender creates an SMTPSender. username may be empty for relays
// that accept unauthenticated submission.
func NewSMTPSender(host, port, from, username, password string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		from:     from,
		username: username,
		password: password,
	}
}

// Send delivers one message. Returns an error when the relay rejects the
// message; callers decide whether to retry on a later pass.
func (s *SMTPSender) Send(to, subject, body string, isHTML bool) error {
	if s.host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	contentType := "text/plain; charset=UTF-8"
	if isHTML {
		contentType = "text/html; charset=UTF-8"
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s\r\n\r\n", contentType)
	msg.WriteString(body)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	return nil
}
