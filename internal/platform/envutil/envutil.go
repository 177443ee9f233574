package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

// String reads name from the environment, logging when the default is used.
func String(name, def string, log *logger.Logger) string {
	v, ok := lookup(name)
	if !ok {
		debug(log, name, "Environment variable not set, using default", "default", def)
		return def
	}
	return v
}

func Int(name string, def int, log *logger.Logger) int {
	v, ok := lookup(name)
	if !ok {
		debug(log, name, "Environment variable not set, using default", "default", def)
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		debug(log, name, "Environment variable is not an int, using default", "provided", v, "default", def)
		return def
	}
	return i
}

func Bool(name string, def bool, log *logger.Logger) bool {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	debug(log, name, "Environment variable is not a bool, using default", "provided", v, "default", def)
	return def
}

// Duration reads an integer count of unit (e.g. STORE_TIMEOUT_MS with time.Millisecond).
func Duration(name string, def time.Duration, unit time.Duration, log *logger.Logger) time.Duration {
	v, ok := lookup(name)
	if !ok {
		debug(log, name, "Environment variable not set, using default", "default", def.String())
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		debug(log, name, "Environment variable is not a non-negative int, using default", "provided", v, "default", def.String())
		return def
	}
	return time.Duration(n) * unit
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func debug(log *logger.Logger, name, msg string, kv ...interface{}) {
	if log == nil {
		return
	}
	log.With("env_var", name).Debug(msg, kv...)
}
