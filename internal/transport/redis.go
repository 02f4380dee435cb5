package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/code-troopers/postits/pkg/board"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Redis is a Transport over Redis Pub/Sub. Events are received from
// postits:{instance}:events and commands are published to
// postits:{instance}:commands.
type Redis struct {
	rdb      *redis.Client
	instance string
	frames   chan []byte
	errors   chan error
	cancel   context.CancelFunc

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	logger *log.Entry
}

// DialRedis connects to Redis and subscribes to the instance's event channel.
// It returns once the subscription is confirmed so no event published after
// DialRedis returns is missed.
func DialRedis(ctx context.Context, opts *redis.Options, instance string) (*Redis, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	logger := log.WithFields(log.Fields{"component": "transport", "kind": "redis", "instance": instance})

	rdb := redis.NewClient(opts)
	pubsub := rdb.Subscribe(ctx, board.EventsChannel(instance))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		rdb.Close()
		logger.WithError(err).Error("Connection failed")
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}
	logger.Info("Connection opened")

	subCtx, cancel := context.WithCancel(context.Background())
	r := &Redis{
		rdb:      rdb,
		instance: instance,
		frames:   make(chan []byte, bufferSize),
		errors:   make(chan error, bufferSize),
		cancel:   cancel,
		logger:   logger,
	}

	go r.receive(subCtx, pubsub)
	return r, nil
}

func (r *Redis) receive(ctx context.Context, pubsub *redis.PubSub) {
	defer close(r.frames)
	defer close(r.errors)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Connection closed")
			return
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info("Subscription closed")
				r.mu.Lock()
				r.closed = true
				r.mu.Unlock()
				return
			}
			select {
			case r.frames <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Frames implements Transport.
func (r *Redis) Frames() <-chan []byte { return r.frames }

// Errors implements Transport.
func (r *Redis) Errors() <-chan error { return r.errors }

// Send publishes frame on the instance's command channel.
func (r *Redis) Send(ctx context.Context, frame []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrNotOpen
	}
	if err := r.rdb.Publish(ctx, board.CommandsChannel(r.instance), frame).Err(); err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}
	return nil
}

// Close stops the subscription and closes the Redis client.
func (r *Redis) Close() error {
	var err error
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		r.cancel()
		err = r.rdb.Close()
	})
	return err
}
