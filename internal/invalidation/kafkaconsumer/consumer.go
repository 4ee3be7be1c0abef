// Package kafkaconsumer consumes price-reload events and deletes the cached
// plans indexed under the reloaded states.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/stateindex"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/config"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/invalidation"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/observability"
)

type Consumer struct {
	cfg    config.InvalidationCfg
	logger *slog.Logger
	cache  cache.Interface
	index  *stateindex.Index
}

func New(cfg config.InvalidationCfg, logger *slog.Logger, c cache.Interface, index *stateindex.Index) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{cfg: cfg, logger: logger, cache: c, index: index}
}

// Start consumes until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil || c.index == nil {
		return errors.New("kafkaconsumer: missing dependencies (cache/index)")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("price invalidation consumer starting",
		"brokers", strings.Join(c.cfg.Brokers, ","), "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("price invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single reload event: for every named state, delete
// the indexed plan keys and clear the index entry.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.ObserveInvalidation(err, 0)
		return fmt.Errorf("json decode: %w", err)
	}
	if err := ev.Validate(); err != nil {
		observability.ObserveInvalidation(err, 0)
		return fmt.Errorf("invalid event: %w", err)
	}

	deleted := 0
	for _, st := range ev.States {
		planKeys, err := c.index.Keys(ctx, st)
		if err != nil {
			observability.ObserveInvalidation(err, deleted)
			return fmt.Errorf("index keys for %s: %w", st, err)
		}
		if len(planKeys) > 0 {
			if err := c.cache.Del(ctx, planKeys...); err != nil {
				observability.ObserveInvalidation(err, deleted)
				return fmt.Errorf("delete plans for %s: %w", st, err)
			}
			deleted += len(planKeys)
		}
		if err := c.index.Clear(ctx, st); err != nil {
			observability.ObserveInvalidation(err, deleted)
			return fmt.Errorf("clear index for %s: %w", st, err)
		}
	}

	observability.ObserveInvalidation(nil, deleted)
	c.logger.Info("invalidated cached plans",
		"op", ev.Op, "states", len(ev.States), "keys", deleted, "source", ev.Source)
	return nil
}
