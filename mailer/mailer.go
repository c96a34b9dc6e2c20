// Package mailer defines the outbound email boundary for verification and
// reset links. Delivery failures are reported, never fatal: an issued token
// stays valid even when its email bounced, so the flow can resend.
//
// No mail library appears anywhere in this codebase's reference stack, so
// the SMTP implementation rides on net/smtp; anything fancier (templates,
// providers, queues) belongs to the consuming application.
package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
)

// Mailer delivers one plain-text message. Implementations must be safe for
// concurrent use. A false return without error is not possible: failure is
// always an error.
type Mailer interface {
	Send(to, subject, body string) error
}

// ErrDeliveryFailed wraps transport-level send failures.
var ErrDeliveryFailed = errors.New("mailer: delivery failed")

// SMTP sends through a plain SMTP relay.
type SMTP struct {
	Addr string // host:port
	From string
	Auth smtp.Auth // optional
}

func (m *SMTP) Send(to, subject, body string) error {
	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("%w: invalid recipient", ErrDeliveryFailed)
	}

	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// Capture records sent messages in memory for tests. Fail makes every Send
// return ErrDeliveryFailed.
type Capture struct {
	mu   sync.Mutex
	Fail bool
	sent []CapturedMessage
}

// CapturedMessage is one recorded Send call.
type CapturedMessage struct {
	To      string
	Subject string
	Body    string
}

func (c *Capture) Send(to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return ErrDeliveryFailed
	}
	c.sent = append(c.sent, CapturedMessage{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (c *Capture) Sent() []CapturedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedMessage, len(c.sent))
	copy(out, c.sent)
	return out
}
