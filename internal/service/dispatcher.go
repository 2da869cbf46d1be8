package service

import (
	"context"
	"strings"
	"time"

	"github.com/danielfabbri/logzone-api/internal/client"
	"github.com/danielfabbri/logzone-api/internal/errs"
)

// countryPrefix is prepended to normalized numbers that lack it.
const countryPrefix = "55"

type TextSender interface {
	SendText(ctx context.Context, bearer, deviceToken, number, text string, timeTyping int) (*client.SendResult, error)
}

type TokenSource interface {
	EnsureValidToken(ctx context.Context) (string, error)
}

// Dispatcher pushes one outbound text through the gateway using the
// shared session's credential.
type Dispatcher struct {
	gateway     TextSender
	session     TokenSource
	deviceToken string
}

func NewDispatcher(gateway TextSender, session TokenSource, deviceToken string) *Dispatcher {
	return &Dispatcher{
		gateway:     gateway,
		session:     session,
		deviceToken: deviceToken,
	}
}

type DispatchOptions struct {
	// TimeTyping is the typing-indicator duration hint, in
	// milliseconds, forwarded to the gateway. Defaults to 1000.
	TimeTyping int
	// Delay postpones the dispatch to mimic a human typing cadence.
	Delay time.Duration
}

type DispatchResult struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// Send dispatches text to phone. Session failures are propagated
// untouched so the caller can tell a configuration problem from a
// failed attempt.
func (d *Dispatcher) Send(ctx context.Context, phone, text string, opts DispatchOptions) (*DispatchResult, error) {
	if d.deviceToken == "" {
		return nil, &errs.ConfigError{Missing: "WHATSAPP_DEVICE_TOKEN"}
	}

	token, err := d.session.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	if opts.TimeTyping <= 0 {
		opts.TimeTyping = 1000
	}

	if opts.Delay > 0 {
		timer := time.NewTimer(opts.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	res, err := d.gateway.SendText(ctx, token, d.deviceToken, NormalizePhone(phone), text, opts.TimeTyping)
	if err != nil {
		return nil, err
	}
	return &DispatchResult{MessageID: res.MessageID, Status: res.Status}, nil
}

// NormalizePhone strips every non-digit character and prepends the
// country code unless the number already starts with it. Applying it
// twice yields the same value.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if !strings.HasPrefix(phone, countryPrefix) {
		phone = countryPrefix + phone
	}
	return phone
}
