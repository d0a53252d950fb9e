package vendoradapter

import (
	"context"
	"sync"
)

// FakeAdapter is a scriptable Adapter for orchestrator tests: each method's
// successive calls are served from a queue, in order. Calling a method past
// the end of its queue repeats the last scripted value, so tests can script
// just the interesting prefix (e.g. "Status returns 50, 80, 100, 0" and
// nothing past the fourth call is expected anyway).
type FakeAdapter struct {
	mu sync.Mutex

	InitCodes  []int
	OpenStubs  []OpenResult
	ReadStubs  []ReadResult
	StatusCodes []int

	initCalls, openCalls, readCalls, statusCalls, closeCalls int

	// InitErr/OpenErr/ReadErr/StatusErr/CloseErr, when non-nil, are
	// returned verbatim instead of consuming a scripted value — used to
	// simulate transport failures (ErrBridgeUnavailable) distinct from
	// in-band recoverable codes.
	InitErr, OpenErr, ReadErr, StatusErr, CloseErr error
}

// NewFakeAdapter returns an adapter with empty scripts; set fields directly
// before use.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{}
}

func (f *FakeAdapter) Init(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.InitErr != nil {
		return 0, f.InitErr
	}

	code := pick(f.InitCodes, f.initCalls)
	f.initCalls++

	return code, nil
}

func (f *FakeAdapter) Open(_ context.Context, _, _ string, _ int) (OpenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenErr != nil {
		return OpenResult{}, f.OpenErr
	}

	result := pickResult(f.OpenStubs, f.openCalls)
	f.openCalls++

	return result, nil
}

func (f *FakeAdapter) Read(_ context.Context, _ int) (ReadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadErr != nil {
		return ReadResult{}, f.ReadErr
	}

	result := pickReadResult(f.ReadStubs, f.readCalls)
	f.readCalls++

	return result, nil
}

func (f *FakeAdapter) Status(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StatusErr != nil {
		return 0, f.StatusErr
	}

	code := pick(f.StatusCodes, f.statusCalls)
	f.statusCalls++

	return code, nil
}

func (f *FakeAdapter) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closeCalls++

	return f.CloseErr
}

// StatusCallCount reports how many times Status was invoked; used by
// orchestrator tests to assert the wait loop stops calling Status the
// instant it observes 0 (testable property in the spec's concurrency
// section: "no further Status call is made").
func (f *FakeAdapter) StatusCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.statusCalls
}

func (f *FakeAdapter) OpenCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.openCalls
}

func pick(vals []int, i int) int {
	if len(vals) == 0 {
		return 0
	}

	if i >= len(vals) {
		return vals[len(vals)-1]
	}

	return vals[i]
}

func pickResult(vals []OpenResult, i int) OpenResult {
	if len(vals) == 0 {
		return OpenResult{}
	}

	if i >= len(vals) {
		return vals[len(vals)-1]
	}

	return vals[i]
}

func pickReadResult(vals []ReadResult, i int) ReadResult {
	if len(vals) == 0 {
		return ReadResult{Code: 0}
	}

	if i >= len(vals) {
		return vals[len(vals)-1]
	}

	return vals[i]
}
