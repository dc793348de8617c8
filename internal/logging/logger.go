// Package logging wraps github.com/charmbracelet/log into the Logger sink
// steps and the Executor emit structured messages to. Debug-level entries
// carry rendered prompts and payloads; credential-bearing fields must be
// masked by the caller via Redact before logging them.
package logging

import (
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// Options configures a Logger at creation time.
type Options struct {
	Writer    io.Writer
	Level     string // "debug", "info", "warn", "error"
	Component string
}

// Logger is the engine-wide sink. Zero value is not usable; use New.
type Logger struct {
	base   *cblog.Logger
	fields []interface{}
}

// New creates a Logger. An empty Level defaults to "info".
func New(opts Options) *Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		if parsed, err := cblog.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	var fields []interface{}
	if opts.Component != "" {
		fields = []interface{}{"component", opts.Component}
	}

	return &Logger{base: base, fields: fields}
}

// With returns a derived Logger that always includes the given key/value
// pairs, used to tag messages with a step's type, name, and recipe path.
func (l *Logger) With(kv ...interface{}) *Logger {
	if l == nil {
		return nil
	}
	next := make([]interface{}, 0, len(l.fields)+len(kv))
	next = append(next, l.fields...)
	next = append(next, kv...)
	return &Logger{base: l.base, fields: next}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(l.base.Debug, msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(l.base.Info, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(l.base.Warn, msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(l.base.Error, msg, kv...) }

func (l *Logger) log(fn func(interface{}, ...interface{}), msg string, kv ...interface{}) {
	if l == nil || l.base == nil {
		return
	}
	payload := make([]interface{}, 0, len(l.fields)+len(kv))
	payload = append(payload, l.fields...)
	payload = append(payload, kv...)
	fn(msg, payload...)
}

// sensitiveKeys lists config keys whose values must never reach a debug log
// verbatim.
var sensitiveKeys = map[string]bool{
	"openai_api_key":       true,
	"anthropic_api_key":    true,
	"gemini_api_key":       true,
	"azure_openai_api_key": true,
	"azure_client_id":      true,
}

const redactedPlaceholder = "***REDACTED***"

// Redact returns a copy of cfg suitable for debug logging, with known
// credential fields replaced by a fixed placeholder.
func Redact(cfg map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(cfg))
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if sensitiveKeys[k] {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = cfg[k]
	}
	return out
}

// MaskSecrets replaces any sensitive config values that appear verbatim in
// s with the redaction placeholder, so rendered prompts and payloads can be
// logged at debug level even when a template interpolated a credential.
func MaskSecrets(s string, cfg map[string]interface{}) string {
	for key, v := range cfg {
		if !sensitiveKeys[key] {
			continue
		}
		if secret, ok := v.(string); ok && secret != "" {
			s = strings.ReplaceAll(s, secret, redactedPlaceholder)
		}
	}
	return s
}
