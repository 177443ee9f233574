package app

import (
	"fmt"
	"strings"

	"github.com/mentiby/tracker-backend/internal/clients/redis"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type Clients struct {
	ProblemBus redis.ProblemBus
}

// wireClients uses Redis pub/sub when REDIS_ADDR is set so every replica hears
// deletions; otherwise deletions are delivered in-process.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		log.Info("REDIS_ADDR not set; using in-process problem bus")
		return Clients{ProblemBus: redis.NewLocalProblemBus(log)}, nil
	}
	bus, err := redis.NewProblemBus(log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis problem bus: %w", err)
	}
	return Clients{ProblemBus: bus}, nil
}

func (c Clients) Close() {
	if c.ProblemBus != nil {
		_ = c.ProblemBus.Close()
	}
}
