package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a zap-backed logger. "prod"/"production" selects JSON output,
// "test" keeps warnings and errors only, anything else is the development console.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	var opts []zap.Option
	if r, ok := redactorFromEnv(); ok {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return &redactingCore{Core: core, r: r}
		}))
	}
	zapLogger, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

type fieldAction int

const (
	keep fieldAction = iota
	redact
	pseudonymise
)

// fieldActions covers the keys this service actually logs. Keys not listed
// fall through to the suffix rules in action.
var fieldActions = map[string]fieldAction{
	"authorization": redact,
	"token":         redact,
	"jwt":           redact,
	"password":      redact,
	"secret":        redact,
	"email":         redact,
	"user_id":       pseudonymise,
	"holder_id":     pseudonymise,
}

// redactor rewrites fields before they reach the encoder. Problem ids,
// scores and durations are not personal and pass through.
type redactor struct {
	salt string
}

func redactorFromEnv() (redactor, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		return redactor{}, false
	}
	return redactor{salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}, true
}

func (r redactor) action(key string) fieldAction {
	key = strings.ToLower(strings.TrimSpace(key))
	if a, ok := fieldActions[key]; ok {
		return a
	}
	switch {
	case strings.HasSuffix(key, "_token"), strings.HasSuffix(key, "_secret"), strings.HasSuffix(key, "_key"):
		return redact
	case strings.HasSuffix(key, "_user_id"):
		return pseudonymise
	}
	return keep
}

func (r redactor) fields(in []zapcore.Field) []zapcore.Field {
	if len(in) == 0 {
		return in
	}
	out := make([]zapcore.Field, len(in))
	for i, f := range in {
		out[i] = r.field(f)
	}
	return out
}

func (r redactor) field(f zapcore.Field) zapcore.Field {
	switch r.action(f.Key) {
	case redact:
		return zap.String(f.Key, "[REDACTED]")
	case pseudonymise:
		raw := fieldText(f)
		if raw == "" {
			return f
		}
		return zap.String(f.Key, r.hash(raw))
	}
	if f.Type == zapcore.StringType && looksLikeJWT(f.String) {
		return zap.String(f.Key, "[REDACTED]")
	}
	return f
}

func (r redactor) hash(raw string) string {
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

// fieldText renders the identifier carried by f. User ids arrive as strings
// or as uuid.UUID, which zap stores as a Stringer.
func fieldText(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.ByteStringType, zapcore.BinaryType:
		if b, ok := f.Interface.([]byte); ok {
			return string(b)
		}
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			return s.String()
		}
	}
	if f.Interface != nil {
		return fmt.Sprint(f.Interface)
	}
	return ""
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

// redactingCore applies a redactor to every field, including those bound
// through With, so sugared and structured call sites are both covered.
type redactingCore struct {
	zapcore.Core
	r redactor
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(c.r.fields(fields)), r: c.r}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.r.fields(fields))
}
