// Package notifier delivers run messages to every configured channel.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/digest"
	"github.com/ibeckermayer/kudos4me/internal/notifier/providers"
)

// Notifier fans messages out to its senders
type Notifier struct {
	senders []Sender
}

// Sender delivers a message over one channel
type Sender interface {
	Name() string
	Send(ctx context.Context, d *digest.Digest) error
}

// New creates a notifier with the given senders
func New(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

// NewFromConfig creates a notifier with every channel enabled in cfg
func NewFromConfig(cfg config.NotifyConfig) *Notifier {
	var senders []Sender
	if cfg.Telegram.Enabled() {
		senders = append(senders, providers.NewTelegramSender(cfg.Telegram.APIURL, cfg.Telegram.Token, cfg.Telegram.ChatID))
	}
	if cfg.SMTP.Enabled() {
		senders = append(senders, providers.NewSMTPSender(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.User,
			cfg.SMTP.Pass,
			cfg.SMTP.FromAddr,
			cfg.SMTP.ToAddr,
		))
	}
	return New(senders...)
}

// Enabled reports whether any channel is configured.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

// Notify sends d on every channel concurrently. A failing channel is
// logged and does not stop the others; the joined failures are returned.
func (n *Notifier) Notify(ctx context.Context, d *digest.Digest) error {
	errs := make([]error, len(n.senders))

	var g errgroup.Group
	for i, s := range n.senders {
		g.Go(func() error {
			if err := s.Send(ctx, d); err != nil {
				slog.WarnContext(ctx, "failed to send notification", "channel", s.Name(), "err", err)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			slog.DebugContext(ctx, "notification sent", "channel", s.Name(), "subject", d.Subject)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
