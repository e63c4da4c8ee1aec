package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"
)

// Logger is a minimal logger interface required by notifiers.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Sender delivers a single push message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TokenSource lists the registration tokens of the driver's devices.
type TokenSource interface {
	Tokens(ctx context.Context) ([]string, error)
}

// StaticTokens is a fixed token list taken from configuration.
type StaticTokens []string

// Tokens returns the configured tokens.
func (s StaticTokens) Tokens(ctx context.Context) ([]string, error) {
	return s, nil
}

// JoinedTokens merges several token sources, dropping duplicates.
type JoinedTokens []TokenSource

// Tokens returns the union of all sources in order.
func (j JoinedTokens) Tokens(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, src := range j {
		tokens, err := src.Tokens(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out, nil
}

// NewMessagingClient initializes a firebase app from a service account file.
func NewMessagingClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return client, nil
}

// FCM pushes notifications to every registered device.
type FCM struct {
	sender Sender
	tokens TokenSource
	logger Logger
}

// NewFCM creates an FCM notifier.
func NewFCM(sender Sender, tokens TokenSource, logger Logger) *FCM {
	return &FCM{sender: sender, tokens: tokens, logger: logger}
}

// Notify sends title and body to all tokens. Failures for single tokens are
// joined into the returned error; the remaining tokens are still tried.
func (f *FCM) Notify(ctx context.Context, title, body string) error {
	tokens, err := f.tokens.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("load push tokens: %w", err)
	}

	var errs []error
	for _, token := range tokens {
		response, err := f.sender.Send(ctx, message(token, title, body))
		if err != nil {
			errs = append(errs, fmt.Errorf("token %s: %w", token, err))
			continue
		}
		f.logger.Infof("push %q delivered: %s", title, response)
	}
	return errors.Join(errs...)
}

func message(token, title, body string) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"source": "panterabot",
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "pantera_bot_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
			},
		},
	}
}
