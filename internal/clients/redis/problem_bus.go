package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

// ProblemBus fans catalogue deletions out to every replica so each one can
// purge ledger entries for the removed problem.
type ProblemBus interface {
	Publish(ctx context.Context, ev catalogue.DeletedEvent) error
	StartForwarder(ctx context.Context, onEvent catalogue.DeletionHandler) error
	Close() error
}

type BusConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

const DefaultChannel = "catalogue.problem_deleted"

type problemBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewProblemBus(log *logger.Logger, cfg BusConfig) (ProblemBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &problemBus{
		log:     log.With("service", "RedisProblemBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *problemBus) Publish(ctx context.Context, ev catalogue.DeletedEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis problem bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *problemBus) StartForwarder(ctx context.Context, onEvent catalogue.DeletionHandler) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis problem bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				dispatch(ctx, b.log, []byte(m.Payload), onEvent)
			}
		}
	}()

	return nil
}

func (b *problemBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func dispatch(ctx context.Context, log *logger.Logger, payload []byte, onEvent catalogue.DeletionHandler) {
	var ev catalogue.DeletedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Warn("bad problem deletion payload", "error", err)
		return
	}
	if err := onEvent(ctx, ev); err != nil {
		log.Warn("problem deletion handler failed", "problem_id", ev.ProblemID, "error", err)
	}
}

// localBus delivers events in-process. Used when no Redis is configured,
// which is fine for a single replica.
type localBus struct {
	log *logger.Logger

	mu       sync.RWMutex
	handlers []catalogue.DeletionHandler
	closed   bool
}

func NewLocalProblemBus(log *logger.Logger) ProblemBus {
	if log == nil {
		log = logger.Nop()
	}
	return &localBus{log: log.With("service", "LocalProblemBus")}
}

// Publish runs handlers synchronously so the caller observes their effects on return.
func (b *localBus) Publish(ctx context.Context, ev catalogue.DeletedEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("problem bus closed")
	}
	hs := append([]catalogue.DeletionHandler(nil), b.handlers...)
	b.mu.RUnlock()

	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for _, h := range hs {
		dispatch(ctx, b.log, raw, h)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onEvent catalogue.DeletionHandler) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("problem bus closed")
	}
	b.handlers = append(b.handlers, onEvent)
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.handlers = nil
	b.mu.Unlock()
	return nil
}
