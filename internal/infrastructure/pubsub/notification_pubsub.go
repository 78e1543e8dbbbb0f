package pubsub

import (
	"context"
	"fmt"
	"sync"

	"eats-pos-link/internal/domain"

	"github.com/rs/zerolog"
)

// NotificationChannel represents one observer's subscription.
type NotificationChannel struct {
	ID            string
	Notifications chan domain.Notification
	ctx           context.Context
	cancel        context.CancelFunc
}

// NotificationPubSub fans out notifications to all current observers.
// Delivery is best-effort: a full or abandoned channel never blocks
// the publisher.
type NotificationPubSub struct {
	mu       sync.RWMutex
	channels map[string]*NotificationChannel
	logger   zerolog.Logger
	nextID   int64
}

// NewNotificationPubSub creates a new pub/sub system.
func NewNotificationPubSub(logger zerolog.Logger) *NotificationPubSub {
	return &NotificationPubSub{
		channels: make(map[string]*NotificationChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription tied to the caller's context. The
// channel is closed and removed when the context is cancelled.
func (ps *NotificationPubSub) Subscribe(ctx context.Context) *NotificationChannel {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	channel := &NotificationChannel{
		ID:            fmt.Sprintf("observer-%d", ps.nextID),
		Notifications: make(chan domain.Notification, 16),
		ctx:           subCtx,
		cancel:        cancel,
	}
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", channel.ID).
		Msg("Observer subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription channel.
func (ps *NotificationPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Notifications)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Observer subscription removed")
}

// Publish broadcasts a notification to all subscribers without
// blocking on any of them.
func (ps *NotificationPubSub) Publish(n domain.Notification) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		select {
		case channel.Notifications <- n:
		case <-channel.ctx.Done():
			// Observer is gone, cleanup goroutine handles removal.
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("type", n.Type).
				Msg("Observer buffer full, dropping notification")
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (ps *NotificationPubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
