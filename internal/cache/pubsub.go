package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/constants"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/storage"
)

type PubSubManager struct {
	client redis.UniversalClient
	logger *logrus.Logger
}

func NewPubSubManager(client redis.UniversalClient, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// Channels lists every channel a swap is published to
func Channels(swap *models.SwapEvent) []string {
	channels := []string{
		constants.PubSubChannelSwaps,
		constants.PubSubChannelRoutePrefix + swap.Route,
	}
	if swap.Pool != "" {
		channels = append(channels, constants.PubSubChannelPoolPrefix+swap.Pool)
	}
	return channels
}

// PublishSwap publishes a swap event to all of its channels
func (p *PubSubManager) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	for _, channel := range Channels(swap) {
		pipe.Publish(ctx, channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

// Subscribe blocks delivering swaps from channel until ctx is done
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler storage.SwapHandler) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	p.logger.WithField("channel", channel).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var swap models.SwapEvent
			if err := json.Unmarshal([]byte(msg.Payload), &swap); err != nil {
				p.logger.WithError(err).Warn("dropping malformed swap message")
				continue
			}
			handler(&swap)
		}
	}
}
