package ports

import "context"

// ResetNotification is the content of a password reset message.
type ResetNotification struct {
	To        string
	Username  string
	ResetLink string
	Token     string
}

// Notifier delivers password reset messages.
type Notifier interface {
	Send(ctx context.Context, n ResetNotification) error
}
