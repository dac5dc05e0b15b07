package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/globaltime"
)

// DefaultChannel is used for rules that name no channel.
const DefaultChannel = "log"

// Sender delivers one pending alert over a single channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, alert db.PendingAlert) error
}

// DefaultMaxAttempts bounds failed deliveries before a trigger is left alone.
const DefaultMaxAttempts = 5

// PendingStore is implemented by *db.Pool.
type PendingStore interface {
	PendingAlerts(ctx context.Context, limit, maxAttempts int) ([]db.PendingAlert, error)
	MarkAlertNotified(ctx context.Context, triggerID int64, at time.Time) error
	RecordAlertAttempt(ctx context.Context, triggerID int64, delivered []string, cause string, at time.Time) error
}

type NotifyResult struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	// GaveUp counts failed triggers that reached MaxAttempts on this run.
	GaveUp int `json:"gave_up"`
}

// Notifier drains un-notified triggers. A trigger is marked notified once
// every channel on its rule has accepted it. Channels that already accepted
// are not sent to again; after MaxAttempts failed runs a trigger is no
// longer picked up.
type Notifier struct {
	store   PendingStore
	senders map[string]Sender
	logger  zerolog.Logger

	MaxAttempts int
}

func NewNotifier(store PendingStore, logger zerolog.Logger, senders ...Sender) *Notifier {
	byChannel := make(map[string]Sender, len(senders))
	for _, s := range senders {
		if s == nil {
			continue
		}
		byChannel[strings.ToLower(s.Channel())] = s
	}
	return &Notifier{store: store, senders: byChannel, logger: logger, MaxAttempts: DefaultMaxAttempts}
}

func (n *Notifier) NotifyPending(ctx context.Context, limit int) (NotifyResult, error) {
	if n == nil || n.store == nil {
		return NotifyResult{}, fmt.Errorf("notifier is not initialized")
	}
	maxAttempts := n.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	pending, err := n.store.PendingAlerts(ctx, limit, maxAttempts)
	if err != nil {
		return NotifyResult{}, err
	}

	result := NotifyResult{Pending: len(pending)}
	for _, alert := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		delivered, err := n.deliver(ctx, alert)
		now := globaltime.UTC()
		if err != nil {
			result.Failed++
			ev := n.logger.Warn()
			if alert.Attempts+1 >= maxAttempts {
				result.GaveUp++
				ev = n.logger.Error().Bool("gave_up", true)
			}
			ev.Err(err).
				Int64("trigger_id", alert.TriggerID).
				Str("rule", alert.RuleName).
				Int("attempt", alert.Attempts+1).
				Strs("delivered_channels", delivered).
				Msg("alert delivery failed")
			if recErr := n.store.RecordAlertAttempt(ctx, alert.TriggerID, delivered, err.Error(), now); recErr != nil {
				return result, recErr
			}
			continue
		}
		if err := n.store.MarkAlertNotified(ctx, alert.TriggerID, now); err != nil {
			return result, err
		}
		result.Sent++
	}
	return result, nil
}

// deliver sends alert on every rule channel not yet delivered and returns
// the full list of channels that have accepted it.
func (n *Notifier) deliver(ctx context.Context, alert db.PendingAlert) ([]string, error) {
	channels := alert.Channels
	if len(channels) == 0 {
		channels = []string{DefaultChannel}
	}

	delivered := make([]string, 0, len(channels))
	done := make(map[string]struct{}, len(alert.DeliveredChannels))
	for _, channel := range alert.DeliveredChannels {
		key := strings.ToLower(strings.TrimSpace(channel))
		if _, dup := done[key]; dup {
			continue
		}
		done[key] = struct{}{}
		delivered = append(delivered, key)
	}

	var errs []error
	for _, channel := range channels {
		key := strings.ToLower(strings.TrimSpace(channel))
		if _, ok := done[key]; ok {
			continue
		}
		sender, ok := n.senders[key]
		if !ok {
			errs = append(errs, fmt.Errorf("no sender configured for channel %q", channel))
			continue
		}
		if err := sender.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sender.Channel(), err))
			continue
		}
		done[key] = struct{}{}
		delivered = append(delivered, key)
	}
	return delivered, errors.Join(errs...)
}

// FormatMessage renders the plain-text body shared by every channel.
func FormatMessage(alert db.PendingAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(alert.UrgencyLevel), alert.Title)
	fmt.Fprintf(&b, "rule: %s (keyword %q)\n", alert.RuleName, alert.MatchedKeyword)
	if alert.Category != "" {
		fmt.Fprintf(&b, "category: %s\n", alert.Category)
	}
	if alert.Link != nil && *alert.Link != "" {
		b.WriteString(*alert.Link)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
