package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"unicode"

	"saldo/internal/core"
)

// DefaultMessage is the reminder text used when none is configured.
const DefaultMessage = "Ciao! Just a friendly reminder about the money you owe me on Saldo."

var ErrNoPhoneNumber = errors.New("contact id is not a phone number")

// Reminder is what a Dispatcher delivers.
type Reminder struct {
	ContactID core.ContactID
	Message   string
}

// Dispatcher performs the actual reminder delivery, which lives outside
// this service. It returns a reference to what was dispatched, such as a
// messaging link the client should open.
type Dispatcher interface {
	Dispatch(ctx context.Context, r Reminder) (string, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, r Reminder) (string, error)

func (f DispatcherFunc) Dispatch(ctx context.Context, r Reminder) (string, error) {
	return f(ctx, r)
}

// LinkDispatcher builds a WhatsApp click-to-chat link for phone-number
// contacts. Opening the link is left to the client.
type LinkDispatcher struct {
	Message string
}

func (d LinkDispatcher) Dispatch(_ context.Context, r Reminder) (string, error) {
	phone, err := phoneDigits(string(r.ContactID))
	if err != nil {
		return "", err
	}
	msg := r.Message
	if msg == "" {
		msg = d.Message
	}
	if msg == "" {
		msg = DefaultMessage
	}
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(msg), nil
}

// phoneDigits strips formatting from a phone number, keeping the digits.
func phoneDigits(s string) (string, error) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrNoPhoneNumber
		}
	}
	if n := b.Len(); n < 6 || n > 15 {
		return "", ErrNoPhoneNumber
	}
	return b.String(), nil
}

// NoopDispatcher dispatches nothing and always succeeds.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(context.Context, Reminder) (string, error) {
	return "", nil
}
