// Package vendoradapter wraps the out-of-process vendor data component
// behind a small capability set, normalizing its mixed tuple/scalar return
// shapes into explicit Go types. It never interprets error codes — the
// Download Orchestrator owns all retry and backoff policy; this package
// only reports what the vendor object said, verbatim.
package vendoradapter

import (
	"context"
	"errors"
	"fmt"
)

// OpenResult is the normalized return shape of a session Open call.
type OpenResult struct {
	Code          int
	ReadCount     int
	DownloadCount int
	LastTimestamp string
}

// ReadResult is the normalized return shape of one Read call.
type ReadResult struct {
	Code     int
	Payload  []byte
	Size     int
	Filename string
}

// Adapter is the capability set every vendor session implementation (the
// real bridge-backed adapter, or a scripted fake for tests) must satisfy.
// Recoverable negative codes are returned, not raised; only a genuine
// transport/protocol failure talking to the hosted component becomes a Go
// error.
type Adapter interface {
	Init(ctx context.Context, serviceKey string) (code int, err error)
	Open(ctx context.Context, dataspec, fromTimestamp string, option int) (OpenResult, error)
	Read(ctx context.Context, maxSize int) (ReadResult, error)
	Status(ctx context.Context) (code int, err error)
	Close(ctx context.Context) error
}

// ErrSessionFailed wraps a vendor Open/Read/Status code that falls outside
// the recoverable set for that method — a fatal condition for the current
// session per the vendor's published error-code semantics.
type ErrSessionFailed struct {
	Method string
	Code   int
}

func (e *ErrSessionFailed) Error() string {
	return fmt.Sprintf("vendoradapter: %s failed with code %d", e.Method, e.Code)
}

// ErrBridgeUnavailable wraps a transport-level failure talking to the
// out-of-process component host (the bridge process is not running, or the
// connection dropped mid-call).
var ErrBridgeUnavailable = errors.New("vendoradapter: bridge unavailable")
