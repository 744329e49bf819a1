// Package utils provides small cross-cutting helpers shared by the
// scheduler and VU runner.
package utils

import "fmt"

// SafeGo starts a goroutine that recovers from panics, converting them into
// a call to recoveryFn instead of crashing the whole run. Script-level
// errors are already contained by ScriptHost.Iteration (§4.4); this is the
// backstop for a genuine Go-level panic inside a VU or executor goroutine.
func SafeGo(fn func(), recoveryFn func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}
				if recoveryFn != nil {
					recoveryFn(err)
				}
			}
		}()
		fn()
	}()
}
