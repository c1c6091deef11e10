package pubsub

import (
	"context"
	"fmt"
	"sync"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/rs/zerolog"
)

// ConnectionEventChannel represents a subscription channel
type ConnectionEventChannel struct {
	ID     string
	UserID string
	Events chan *domain.ConnectionEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// ConnectionPubSub fans connection change events out to per-user subscribers
type ConnectionPubSub struct {
	mu       sync.RWMutex
	channels map[string]*ConnectionEventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewConnectionPubSub creates a new connection event pub/sub
func NewConnectionPubSub(logger zerolog.Logger) *ConnectionPubSub {
	return &ConnectionPubSub{
		channels: make(map[string]*ConnectionEventChannel),
		logger:   logger,
	}
}

// Subscribe creates a channel receiving the events of one user.
// The channel is removed when ctx is cancelled.
func (ps *ConnectionPubSub) Subscribe(ctx context.Context, userID string) *ConnectionEventChannel {
	ps.idMu.Lock()
	ps.nextID++
	id := fmt.Sprintf("channel-%d", ps.nextID)
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &ConnectionEventChannel{
		ID:     id,
		UserID: userID,
		Events: make(chan *domain.ConnectionEvent, 10),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", id).
		Str("userId", userID).
		Msg("Connection event subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *ConnectionPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Connection event subscription removed")
}

// Publish delivers the event to every subscriber of its user without blocking
func (ps *ConnectionPubSub) Publish(event *domain.ConnectionEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, channel := range ps.channels {
		if channel.UserID != event.UserID {
			continue
		}
		select {
		case channel.Events <- event:
			delivered++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}

	if delivered > 0 {
		ps.logger.Debug().
			Str("userId", event.UserID).
			Str("reason", event.Reason).
			Int("subscribers", delivered).
			Msg("Published connection event to subscribers")
	}
}

// Subscribers returns the number of open subscriptions
func (ps *ConnectionPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
