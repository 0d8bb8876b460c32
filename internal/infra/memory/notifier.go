package memory

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ResetMessage is a password reset notification kept by Outbox.
type ResetMessage struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Outbox is an app.Notifier that logs notifications and keeps them for inspection.
// No mail transport is wired; operators read reset tokens from the log.
type Outbox struct {
	mu       sync.Mutex
	messages []ResetMessage
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) SendPasswordReset(_ context.Context, email, token string, expiresAt time.Time) error {
	o.mu.Lock()
	o.messages = append(o.messages, ResetMessage{Email: email, Token: token, ExpiresAt: expiresAt})
	o.mu.Unlock()
	log.WithFields(log.Fields{"email": email, "expires_at": expiresAt.Format(time.RFC3339)}).
		Info("password reset issued")
	return nil
}

// Last returns the most recent message for email.
func (o *Outbox) Last(email string) (ResetMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].Email == email {
			return o.messages[i], true
		}
	}
	return ResetMessage{}, false
}
