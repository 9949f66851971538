// Package osmem acquires raw, zero-filled memory from the operating system
// for heap segments, machine stacks and static root areas.
//
// Memory obtained here never lives on the Go heap (except on platforms
// without anonymous mappings, see osmem_fallback.go), so the Go collector
// neither scans nor moves it. Every Acquire returns a cleanup func; calling
// it twice is a no-op.
package osmem

import "errors"

// ErrBadSize indicates a non-positive acquisition size.
var ErrBadSize = errors.New("osmem: size must be positive")
