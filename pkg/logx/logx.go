// Package logx provides structured logging with context-aware debug logging.
//
// The API mirrors a printf-style component logger; entries are written
// through zap so they can be emitted as console text or JSON.
package logx

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by SetLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type contextKey string

// QueryIDKey is the context key carrying the current query ID.
const QueryIDKey contextKey = "query_id"

// DebugConfig controls debug logging behavior.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // nil enables all domains
}

//nolint:gochecknoglobals // process-wide logging configuration
var (
	mu          sync.RWMutex
	debugConfig = &DebugConfig{}
	level       = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	format      = "console"
	core        zapcore.Core
	base        *zap.Logger
)

func init() { //nolint:gochecknoinits // env-driven defaults
	initFromEnv()
}

// initFromEnv reads DEBUG, DEBUG_DOMAINS and LOG_FORMAT.
func initFromEnv() {
	mu.Lock()
	defer mu.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.Enabled = true
		level.SetLevel(zapcore.DebugLevel)
	}
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = parseDomains(strings.Split(domains, ","))
	}
	if f := os.Getenv("LOG_FORMAT"); f == "json" || f == "console" {
		format = f
	}
	rebuildLocked(nil)
}

func parseDomains(domains []string) map[string]bool {
	out := make(map[string]bool, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			out[d] = true
		}
	}
	return out
}

// rebuildLocked recreates the base logger. A nil override builds the
// default stderr core.
func rebuildLocked(override zapcore.Core) {
	if override != nil {
		core = override
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		var enc zapcore.Encoder
		if format == "json" {
			enc = zapcore.NewJSONEncoder(encCfg)
		} else {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			enc = zapcore.NewConsoleEncoder(encCfg)
		}
		core = zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	}
	base = zap.New(core)
}

// SetOutput replaces the destination core for every logger. Passing nil
// restores the default stderr output. Intended for tests and for the CLI.
func SetOutput(c zapcore.Core) {
	mu.Lock()
	defer mu.Unlock()
	rebuildLocked(c)
}

// SetFormat switches between "console" and "json" output.
func SetFormat(f string) error {
	if f != "console" && f != "json" {
		return fmt.Errorf("unknown log format %q", f)
	}
	mu.Lock()
	defer mu.Unlock()
	format = f
	rebuildLocked(nil)
	return nil
}

// ParseLevel validates a level name.
func ParseLevel(name string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return l, fmt.Errorf("unknown log level %q: %w", name, err)
	}
	return l, nil
}

// SetLevel sets the minimum level for the default output.
func SetLevel(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(l)
	mu.Lock()
	debugConfig.Enabled = l == zapcore.DebugLevel
	mu.Unlock()
	return nil
}

// SetDebugDomains configures which domains have debug logging enabled.
func SetDebugDomains(domains []string) {
	mu.Lock()
	defer mu.Unlock()
	if len(domains) == 0 {
		debugConfig.Domains = nil
		return
	}
	debugConfig.Domains = parseDomains(domains)
}

// SetDebug enables or disables debug logging.
func SetDebug(enabled bool) {
	mu.Lock()
	debugConfig.Enabled = enabled
	mu.Unlock()
	if enabled {
		level.SetLevel(zapcore.DebugLevel)
	} else if level.Level() == zapcore.DebugLevel {
		level.SetLevel(zapcore.InfoLevel)
	}
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugConfig.Enabled
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for a domain.
func IsDebugEnabledForDomain(domain string) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Logger writes entries tagged with a component name.
type Logger struct {
	component string
	fields    []zap.Field
}

// NewLogger returns a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// With returns a child logger carrying extra fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	merged := make([]zap.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{component: l.component, fields: merged}
}

// WithQueryID returns a child logger tagged with a query ID.
func (l *Logger) WithQueryID(id string) *Logger {
	return l.With(zap.String("query_id", id))
}

// GetComponent returns the component name.
func (l *Logger) GetComponent() string {
	return l.component
}

func (l *Logger) log(lvl zapcore.Level, format string, args ...any) {
	zl := current()
	ce := zl.Check(lvl, fmt.Sprintf(format, args...))
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, len(l.fields)+1)
	fields = append(fields, zap.String("component", l.component))
	fields = append(fields, l.fields...)
	ce.Write(fields...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.log(zapcore.DebugLevel, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(zapcore.InfoLevel, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(zapcore.WarnLevel, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(zapcore.ErrorLevel, format, args...)
}

// Debug logs a debug message for a domain, tagged with the query ID found in ctx.
//
//	logx.Debug(ctx, "router", "decision: %s", agent)
//
// Environment variable control:
//
//	DEBUG=1                          # enable debug for all domains
//	DEBUG=1 DEBUG_DOMAINS=router     # only the router domain
//	DEBUG=1 DEBUG_DOMAINS=router,gate
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	fields := []zap.Field{zap.String("component", domain)}
	if ctx != nil {
		if id, ok := ctx.Value(QueryIDKey).(string); ok && id != "" {
			fields = append(fields, zap.String("query_id", id))
		}
	}
	if ce := current().Check(zapcore.DebugLevel, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write(fields...)
	}
}

// DebugState logs a state transition for a domain.
func DebugState(ctx context.Context, domain, action, state string, extra ...string) {
	extraInfo := ""
	if len(extra) > 0 {
		extraInfo = " - " + extra[0]
	}
	Debug(ctx, domain, "State %s: %s%s", action, state, extraInfo)
}

// WithQueryID stores a query ID in ctx for Debug.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, QueryIDKey, id)
}

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}

//nolint:gochecknoglobals // convenience logger
var defaultLogger = NewLogger("system")

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
//
//	err := logx.Errorf("setup failed: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}
