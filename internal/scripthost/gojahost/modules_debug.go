package gojahost

import (
	"context"

	"github.com/nogcio/wrkr/infrastructure/redaction"
)

// installDebugModule installs the `debug` built-in (§6): a thin bridge from
// script-level logging calls into the engine's structured logger, tagged
// with the active VU/scenario/group so debug output can be correlated with
// a run the same way engine-emitted log lines are.
func (h *Host) installDebugModule() {
	log := func(level string, fields map[string]interface{}, msg string) {
		if h.deps.Logger == nil {
			return
		}
		if h.deps.DebugLimiter != nil && !h.deps.DebugLimiter.Allow() {
			return
		}
		entry := h.deps.Logger.WithContext(context.Background()).WithField("group", h.runner.GroupTag())
		if fields != nil {
			entry = entry.WithFields(redaction.RedactMap(fields))
		}
		switch level {
		case "warn":
			entry.Warn(msg)
		case "error":
			entry.Error(msg)
		default:
			entry.Debug(msg)
		}
	}

	module := map[string]interface{}{
		"log": func(msg string, fields map[string]interface{}) {
			log("debug", fields, msg)
		},
		"warn": func(msg string, fields map[string]interface{}) {
			log("warn", fields, msg)
		},
		"error": func(msg string, fields map[string]interface{}) {
			log("error", fields, msg)
		},
	}
	h.vm.Set("debug", module)
}
