package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

// InvalidationChannel carries cache invalidations between instances.
const InvalidationChannel = "taxonomy:invalidate"

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, invalidation domain.Invalidation) error {

	jsonstr, err := json.Marshal(invalidation)
	if err != nil {
		return errors.Wrap(err, "SignalService.Publish: marshal failed")
	}

	err = s.rdb.Publish(ctx, InvalidationChannel, jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "SignalService.Publish: redis publish failed")
	}

	return nil
}

// Subscribe hands every invalidation published on the channel to handler until ctx is done.
func (s *SignalService) Subscribe(ctx context.Context, handler func(domain.Invalidation)) error {
	pubsub := s.rdb.Subscribe(ctx, InvalidationChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return errors.Wrap(err, "SignalService.Subscribe: subscribe failed")
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var invalidation domain.Invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &invalidation); err != nil {
				slog.WarnContext(
					ctx, "dropping malformed invalidation",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			handler(invalidation)
		}
	}
}
