package results

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/certprep/pkg/http/ws"
)

type sessionBroadcaster interface {
	Broadcast(sessionID uuid.UUID, msg ws.Message) error
}

// Broadcaster listens for published attempts and tells the clients
// following that session that the attempt has been recorded.
type Broadcaster struct {
	redis   *redis.Client
	hub     sessionBroadcaster
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(redis *redis.Client, hub sessionBroadcaster, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "results_broadcaster").Logger(),
	}
}

// Run subscribes to the results channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var attempt Attempt
	if err := json.Unmarshal([]byte(payload), &attempt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode published attempt")
		return
	}

	msg, err := ws.NewMessage(ws.TypeAttemptRecorded, ws.AttemptRecordedPayload{
		SessionID:  attempt.SessionID.String(),
		AttemptID:  attempt.AttemptID.String(),
		Percentage: attempt.Report.Percentage,
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to encode attempt_recorded message")
		return
	}
	if err := b.hub.Broadcast(attempt.SessionID, msg); err != nil {
		b.logger.Debug().Err(err).Str("session_id", attempt.SessionID.String()).Msg("attempt_recorded broadcast failed")
	}
}
