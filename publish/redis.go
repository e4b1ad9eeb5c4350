package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const DefaultKeep = 1000

type Options struct {
	Addr     string
	Password string
	DB       int
	// Channel receives every record over pub/sub.
	Channel string
	// Keep bounds the per-instrument history lists.
	Keep int64
}

// Redis publishes records on a pub/sub channel and keeps a bounded history
// list per instrument and kind.
type Redis struct {
	client  *redis.Client
	channel string
	keep    int64
	log     *slog.Logger
}

func NewRedis(ctx context.Context, opts Options, logger *slog.Logger) (*Redis, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if opts.Channel == "" {
		opts.Channel = "ctd"
	}
	if opts.Keep <= 0 {
		opts.Keep = DefaultKeep
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	logger.Info("connected to redis", "addr", opts.Addr, "channel", opts.Channel)

	return &Redis{
		client:  client,
		channel: opts.Channel,
		keep:    opts.Keep,
		log:     logger,
	}, nil
}

func (r *Redis) Publish(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}

	key := HistoryKey(rec.Instrument, rec.Kind)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, r.keep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn("store record history", "key", key, "error", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// HistoryKey names the list holding recent records of one kind.
func HistoryKey(instrument int, kind string) string {
	return fmt.Sprintf("ctd:%04d:%s", instrument, kind)
}
