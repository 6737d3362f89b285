package notify

import (
	"context"

	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/metrics"
	"github.com/cuemby/viewsync/pkg/report"
	"github.com/rs/zerolog"
)

// Sender delivers a text message to a channel
type Sender interface {
	Send(ctx context.Context, channel, text string) error
}

// LogSender writes messages to the log instead of a chat
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a sender that only logs
func NewLogSender() *LogSender {
	return &LogSender{logger: log.WithComponent("notify")}
}

func (s *LogSender) Send(ctx context.Context, channel, text string) error {
	s.logger.Info().Str("channel", channel).Str("text", text).Msg("Notification")
	return nil
}

// Channels maps message kinds to channel ids
type Channels struct {
	Report string
	Status string
}

func (c Channels) For(kind report.Kind) string {
	if kind == report.KindStatus && c.Status != "" {
		return c.Status
	}
	return c.Report
}

// Notifier routes run messages to their channels. Delivery is best effort:
// failures are logged and counted, never returned.
type Notifier struct {
	sender   Sender
	channels Channels
	logger   zerolog.Logger
}

// NewNotifier creates a notifier
func NewNotifier(sender Sender, channels Channels) *Notifier {
	return &Notifier{
		sender:   sender,
		channels: channels,
		logger:   log.WithComponent("notify"),
	}
}

// Deliver sends every message and returns how many could not be delivered
func (n *Notifier) Deliver(ctx context.Context, msgs []report.Message) int {
	failed := 0
	for _, msg := range msgs {
		channel := n.channels.For(msg.Kind)
		if channel == "" {
			n.logger.Warn().Str("kind", string(msg.Kind)).Msg("No channel configured, message dropped")
			metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
			continue
		}

		if err := n.sender.Send(ctx, channel, msg.Text); err != nil {
			failed++
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			n.logger.Warn().Err(err).Str("channel", channel).Str("kind", string(msg.Kind)).Msg("Notification not delivered")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	}
	return failed
}
