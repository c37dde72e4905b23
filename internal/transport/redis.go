package transport

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel subscribed to when none is configured.
const DefaultRedisChannel = "pushd:messages"

// RedisOptions configures the Redis pub/sub transport.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Redis receives push messages from a Redis pub/sub channel.
type Redis struct {
	handlerSlot

	opts   RedisOptions
	logger *slog.Logger
}

// NewRedis creates a Redis transport.
func NewRedis(opts RedisOptions, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.Channel == "" {
		opts.Channel = DefaultRedisChannel
	}
	return &Redis{opts: opts, logger: logger}
}

// Name returns "redis".
func (r *Redis) Name() string {
	return "redis"
}

// Run subscribes to the channel until ctx is cancelled.
func (r *Redis) Run(ctx context.Context) error {
	if r.get() == nil {
		return &Error{Transport: r.Name(), Message: "cannot start", Err: ErrNoHandler}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     r.opts.Addr,
		Password: r.opts.Password,
		DB:       r.opts.DB,
	})
	defer client.Close()

	pubsub := client.Subscribe(ctx, r.opts.Channel)
	defer pubsub.Close()

	// Wait for the subscription confirmation so connection errors surface here.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &Error{Transport: r.Name(), Message: "failed to subscribe", Err: err}
	}
	r.logger.Info("redis subscribed", "addr", r.opts.Addr, "channel", r.opts.Channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return &Error{Transport: r.Name(), Message: "subscription closed"}
			}
			r.deliver(ctx, r.Name(), []byte(msg.Payload), r.logger)
		}
	}
}
