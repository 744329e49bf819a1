// Package redaction scrubs secret-shaped values out of the fields a script
// passes to debug.log/warn/error (§6) before they reach the structured
// logger, so a scenario author accidentally logging a bearer token or an
// HTTP basic-auth URL doesn't leak it into run output.
package redaction

import (
	"regexp"
	"strings"
)

// fieldPatterns match secret-shaped values embedded in a logged string:
// key=value/key:value pairs, JWT bearer tokens, and credentials embedded in
// a request URL (scripts build these directly for the HTTP Client, §4.5).
var fieldPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)(secret|token|auth)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)(Bearer)\s+[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`(?i)(password)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)(private[_-]?key|privkey)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)(access[_-]?key|aws[_-]?secret)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`://([^:/\s]+):([^@/\s]+)@`),
}

// blockedFieldNames are debug-log field keys redacted wholesale regardless
// of their value's shape — names a scenario commonly uses for a header or
// credential it's passing straight through to a request.
var blockedFieldNames = []string{
	"password",
	"secret",
	"token",
	"apikey",
	"api_key",
	"private_key",
	"credential",
	"authorization",
	"cookie",
}

const redactedText = "***REDACTED***"

// Config tunes a Redactor; the zero value is ready to use and behaves like
// DefaultConfig.
type Config struct {
	Disabled      bool
	RedactionText string
	BlockedFields []string
}

// DefaultConfig returns the redaction policy installDebugModule applies by
// default.
func DefaultConfig() Config {
	return Config{RedactionText: redactedText, BlockedFields: blockedFieldNames}
}

// Redactor scrubs secret-shaped values from a script's debug-log fields.
type Redactor struct {
	cfg Config
}

// New builds a Redactor from cfg, filling in the redaction text when unset.
func New(cfg Config) *Redactor {
	if cfg.RedactionText == "" {
		cfg.RedactionText = redactedText
	}
	if cfg.BlockedFields == nil {
		cfg.BlockedFields = blockedFieldNames
	}
	return &Redactor{cfg: cfg}
}

// RedactString scrubs every secret-shaped substring of s.
func (r *Redactor) RedactString(s string) string {
	if r.cfg.Disabled {
		return s
	}
	for _, pattern := range fieldPatterns {
		s = pattern.ReplaceAllString(s, "${1}: "+r.cfg.RedactionText)
	}
	return s
}

// RedactMap walks m recursively, replacing blocked field names wholesale and
// scrubbing secret-shaped substrings out of every string value it keeps -
// the shape a script's debug.log(msg, fields) call arrives in after goja
// converts its object argument.
func (r *Redactor) RedactMap(m map[string]interface{}) map[string]interface{} {
	if r.cfg.Disabled {
		return m
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch {
		case r.isBlockedField(k):
			out[k] = r.cfg.RedactionText
		case v == nil:
			out[k] = nil
		default:
			out[k] = r.redactValue(v)
		}
	}
	return out
}

func (r *Redactor) redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return r.RedactString(val)
	case map[string]interface{}:
		return r.RedactMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = r.redactValue(item)
		}
		return out
	default:
		return v
	}
}

func (r *Redactor) isBlockedField(name string) bool {
	lower := strings.ToLower(name)
	for _, blocked := range r.cfg.BlockedFields {
		if strings.Contains(lower, strings.ToLower(blocked)) {
			return true
		}
	}
	return false
}

var defaultRedactor = New(DefaultConfig())

// RedactMap scrubs fields using the package's default policy - the entry
// point installDebugModule calls for every debug.log/warn/error invocation.
func RedactMap(fields map[string]interface{}) map[string]interface{} {
	return defaultRedactor.RedactMap(fields)
}
