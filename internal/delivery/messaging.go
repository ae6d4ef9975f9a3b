// internal/delivery/messaging.go
//
// Messaging hands the formatted message to the chat app through a deep link.
//
// Context
//   The link has the shape https://<host>/<country><digits>?text=<message>.
//   The recipient is a fixed operator number taken from configuration, not the
//   respondent's own phone.  There is no acknowledgement channel: once the
//   Opener accepts the link the attempt counts as delivered.
//
// Notes
//   •  Text is percent-encoded with %20 for spaces, so chat apps that do
//      not decode '+' still render the message correctly.
//   •  Duplicate prevention is the backend's job and does not apply here.
//
//------------------------------------------------------------------------------

package delivery

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/yanizio/pesquisa/internal/payload"
	"github.com/yanizio/pesquisa/internal/survey"
)

// Defaults for the messaging link.
const (
	DefaultHost      = "wa.me"
	DefaultCountry   = "55"
	DefaultRecipient = "22996057202"
)

// Opener launches a deep link.
type Opener interface {
	Open(ctx context.Context, link string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, link string) error

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, link string) error { return f(ctx, link) }

// Messaging is the deep-link strategy.  Zero fields fall back to the
// defaults above; Open is required.
type Messaging struct {
	Host      string
	Country   string
	Recipient string
	Message   payload.MessageOptions
	Open      Opener

	now func() time.Time
}

// Name implements Strategy.
func (*Messaging) Name() string { return string(ModeMessaging) }

// Link builds the deep link for r stamped with now.
func (m *Messaging) Link(r survey.Record, now time.Time) (string, error) {
	host := m.Host
	if host == "" {
		host = DefaultHost
	}
	recipient := m.Recipient
	if recipient == "" {
		recipient = DefaultRecipient
	}
	country := m.Country
	if country == "" {
		country = DefaultCountry
	}

	digits := survey.Digits(recipient)
	if digits == "" {
		return "", errors.New("messaging recipient has no digits")
	}
	// National numbers are at most 11 digits; anything longer already
	// carries its country code.
	if len(digits) <= 11 {
		digits = country + digits
	}

	u, err := url.Parse("https://" + host + "/" + digits)
	if err != nil {
		return "", err
	}
	text := payload.ToMessage(r, now, m.Message)
	u.RawQuery = "text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return u.String(), nil
}

// Deliver implements Strategy.
func (m *Messaging) Deliver(ctx context.Context, r survey.Record) (Receipt, error) {
	now := time.Now()
	if m.now != nil {
		now = m.now()
	}

	link, err := m.Link(r, now)
	if err != nil {
		return Receipt{}, unexpected(MsgLink, err)
	}
	if m.Open == nil {
		return Receipt{}, unexpected(MsgLink, errors.New("messaging opener not configured"))
	}
	if err := m.Open.Open(ctx, link); err != nil {
		return Receipt{}, unexpected(MsgLink, err)
	}
	return Receipt{Link: link, At: now}, nil
}
