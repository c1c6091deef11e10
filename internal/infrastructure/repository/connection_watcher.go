package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// changeStreamUnsupported is returned by standalone servers
const changeStreamUnsupported = 40573

// ConnectionChangeFunc is called with the user whose connections changed
type ConnectionChangeFunc func(ctx context.Context, userID string)

// ConnectionWatcher follows the shop_connections change stream.
// Delivery may be late or out of order; consumers treat it as a hint.
type ConnectionWatcher struct {
	collection *mongo.Collection
	onChange   ConnectionChangeFunc
	logger     zerolog.Logger
	retryDelay time.Duration
}

type connectionChange struct {
	OperationType string `bson:"operationType"`
	FullDocument  struct {
		UserID string `bson:"userId"`
		ShopID string `bson:"shopId"`
	} `bson:"fullDocument"`
}

// NewConnectionWatcher creates a new change stream listener
func NewConnectionWatcher(db *mongo.Database, onChange ConnectionChangeFunc, logger zerolog.Logger) *ConnectionWatcher {
	return &ConnectionWatcher{
		collection: db.Collection(connectionsCollection),
		onChange:   onChange,
		logger:     logger,
		retryDelay: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled, reopening the stream after transient failures.
// It returns nil immediately when the deployment has no change streams; writes
// from this process still refresh the cache directly.
func (w *ConnectionWatcher) Run(ctx context.Context) error {
	for {
		err := w.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == changeStreamUnsupported {
			w.logger.Warn().Msg("Change streams not supported, connection listener disabled")
			return nil
		}

		w.logger.Warn().Err(err).Dur("retryIn", w.retryDelay).Msg("Connection change stream interrupted")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *ConnectionWatcher) watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := w.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("failed to open change stream: %w", err)
	}
	defer stream.Close(context.WithoutCancel(ctx))

	w.logger.Info().Msg("Connection change stream opened")

	for stream.Next(ctx) {
		var change connectionChange
		if err := stream.Decode(&change); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to decode connection change")
			continue
		}
		if change.FullDocument.UserID == "" {
			continue
		}
		w.logger.Debug().
			Str("op", change.OperationType).
			Str("userId", change.FullDocument.UserID).
			Str("shop", change.FullDocument.ShopID).
			Msg("Connection change observed")
		w.onChange(ctx, change.FullDocument.UserID)
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("change stream error: %w", err)
	}
	return nil
}
