// Package orchestrator drives the Vendor Session Adapter through the
// Open/wait/read/Close cycle, absorbing transient failures per the
// published backoff ladder. It is the only component that calls the
// adapter; the demultiplexer and parsers it invokes are passive.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jravan/ingest/internal/jvrecord"
	"github.com/jravan/ingest/internal/vendoradapter"
)

const (
	defaultCycleTimeout     = 120 * time.Second
	defaultPollInterval     = 300 * time.Millisecond
	defaultReadRetryWait    = 100 * time.Millisecond
	defaultReadSafetyCap    = 10_000
	maxConsecutiveErrors    = 10
	serverTransientWait     = 180 * time.Second // code -421
	transferErrorWait       = 30 * time.Second  // code -502
	connectionDropWait      = 30 * time.Second
	otherNegativeErrorWait  = 60 * time.Second
)

// Options configures one Fetch call. Zero-value fields fall back to the
// spec's nominal defaults.
type Options struct {
	DownloadOption int // 1 = normal, 2 = setup/bulk
	CycleTimeout   time.Duration
	PollInterval   time.Duration
	ReadRetryWait  time.Duration
	ReadSafetyCap  int
}

func (o Options) withDefaults() Options {
	if o.CycleTimeout <= 0 {
		o.CycleTimeout = defaultCycleTimeout
	}

	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}

	if o.ReadRetryWait <= 0 {
		o.ReadRetryWait = defaultReadRetryWait
	}

	if o.ReadSafetyCap <= 0 {
		o.ReadSafetyCap = defaultReadSafetyCap
	}

	return o
}

// ParsedRecord pairs a demultiplexed row with its target table.
type ParsedRecord struct {
	Table string
	Row   jvrecord.Row
}

// FetchResult is the outcome of one Fetch call: either counts (success) or
// a non-empty Error (failure). Per-record parse errors never fail the
// cycle; they accumulate in ParseErrors.
type FetchResult struct {
	Date          string
	Dataspec      string
	Records       []ParsedRecord
	OpenCode      int
	ReadCount     int
	DownloadCount int
	StatusTrace   []int
	ParseErrors   []string
	Error         string
}

// Sink receives parsed rows as the read loop produces them and is flushed
// at file boundaries (a filename change reported by Read) and unconditionally
// at cycle end. Implemented by the Ingest Writer; orchestrator tests may
// pass nil to skip persistence and only inspect FetchResult.Records.
type Sink interface {
	Write(table string, row jvrecord.Row) error
	Flush() error
}

// Orchestrator drives one Adapter through fetch cycles. Not safe for
// concurrent use: the vendor interface requires affinity to a single
// scheduling context, and an Orchestrator owns exactly one Adapter session
// at a time.
type Orchestrator struct {
	adapter    vendoradapter.Adapter
	demux      *jvrecord.Demultiplexer
	family     string
	serviceKey string
	clock      Clock
	logger     *slog.Logger
}

// New builds an Orchestrator bound to one adapter session and one record
// family (NL for archival fetches, RT for realtime).
func New(adapter vendoradapter.Adapter, demux *jvrecord.Demultiplexer, family, serviceKey string, clock Clock, logger *slog.Logger) *Orchestrator {
	if clock == nil {
		clock = SystemClock{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		adapter: adapter, demux: demux, family: family,
		serviceKey: serviceKey, clock: clock, logger: logger,
	}
}

// Fetch runs one full Open/wait/read/Close cycle for (date, dataspec). It
// absorbs -421/-502 Open-level transients inline, holding the same adapter
// session, per the backoff ladder; any other fatal Open/Read/Status code
// ends the cycle with FetchResult.Error set. Close always runs before
// Fetch returns, and a Close failure is logged but never overrides a
// successful result.
func (o *Orchestrator) Fetch(ctx context.Context, date, dataspec string, opts Options) FetchResult {
	return o.fetch(ctx, date, dataspec, opts, nil)
}

// FetchAndWrite behaves like Fetch but also writes every parsed row to
// sink as the read loop produces it, flushing at file boundaries and at
// cycle end — the path the live harness and daemon modes use; Fetch alone
// is for tests and dry runs that only want FetchResult.Records.
func (o *Orchestrator) FetchAndWrite(ctx context.Context, date, dataspec string, opts Options, sink Sink) FetchResult {
	return o.fetch(ctx, date, dataspec, opts, sink)
}

func (o *Orchestrator) fetch(ctx context.Context, date, dataspec string, opts Options, sink Sink) FetchResult {
	opts = opts.withDefaults()

	result := FetchResult{Date: date, Dataspec: dataspec}

	cycleCtx, cancel := context.WithTimeout(ctx, opts.CycleTimeout)
	defer cancel()

	if code, err := o.adapter.Init(cycleCtx, o.serviceKey); err != nil {
		result.Error = fmt.Sprintf("init: %v", err)

		return result
	} else if code != 0 {
		result.Error = fmt.Sprintf("init: non-zero return code %d", code)

		return result
	}

	open, err := o.openWithBackoff(cycleCtx, dataspec, date+"000000", opts, &result)
	if err != nil {
		result.Error = err.Error()
		o.closeQuiet(ctx)

		return result
	}

	result.OpenCode = open.Code
	result.DownloadCount = open.DownloadCount

	if open.DownloadCount > 0 && isOpenRecoverable(open.Code) {
		if err := o.waitForDownload(cycleCtx, opts, &result); err != nil {
			result.Error = err.Error()
			o.closeQuiet(ctx)

			return result
		}
	}

	if err := o.readLoop(cycleCtx, dataspec, opts, sink, &result); err != nil {
		result.Error = err.Error()
	}

	o.closeQuiet(ctx)

	return result
}

// openWithBackoff calls Open, retrying in place on the two Open-level
// transient codes the backoff ladder names (-421, -502); any other
// outcome — success, locally-recoverable, or fatal — returns immediately.
func (o *Orchestrator) openWithBackoff(ctx context.Context, dataspec, fromTimestamp string, opts Options, result *FetchResult) (vendoradapter.OpenResult, error) {
	consecutiveErrors := 0

	for {
		open, err := o.adapter.Open(ctx, dataspec, fromTimestamp, opts.DownloadOption)
		if err != nil {
			return vendoradapter.OpenResult{}, fmt.Errorf("open: %w", err)
		}

		switch open.Code {
		case -421:
			consecutiveErrors++
			o.logger.Warn("server transient on open, retrying", slog.Int("code", open.Code))

			if consecutiveErrors >= maxConsecutiveErrors {
				return vendoradapter.OpenResult{}, fmt.Errorf("open: %d consecutive -421 errors, giving up", consecutiveErrors)
			}

			o.clock.Sleep(ctx, serverTransientWait)

			continue
		case -502:
			o.logger.Warn("transfer error on open, retrying", slog.Int("code", open.Code))
			o.clock.Sleep(ctx, transferErrorWait)

			continue
		default:
			if isOpenRecoverable(open.Code) {
				return open, nil
			}

			return vendoradapter.OpenResult{}, &vendoradapter.ErrSessionFailed{Method: "Open", Code: open.Code}
		}
	}
}

func isOpenRecoverable(code int) bool {
	return code == 0 || code == -1 || code == -301
}

// waitForDownload polls Status at a fixed interval until it observes 0 —
// the sole terminal-success value; the loop exits that same iteration with
// no further Status call, per the universal invariant — a fatal negative
// (anything below -1 other than the Open codes already handled), or the
// cycle's wall-clock budget.
func (o *Orchestrator) waitForDownload(ctx context.Context, opts Options, result *FetchResult) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("download wait: %w", ctx.Err())
		default:
		}

		code, err := o.adapter.Status(ctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}

		result.StatusTrace = append(result.StatusTrace, code)

		if code == 0 {
			return nil
		}

		if code < 0 && code != -1 {
			return &vendoradapter.ErrSessionFailed{Method: "Status", Code: code}
		}

		o.clock.Sleep(ctx, opts.PollInterval)
	}
}

// readLoop drains the session via Read, demultiplexing and parsing each
// record, flushing sink on every filename change Read reports and
// unconditionally once the loop ends.
func (o *Orchestrator) readLoop(ctx context.Context, dataspec string, opts Options, sink Sink, result *FetchResult) error {
	var currentFile string

	flush := func() error {
		if sink == nil {
			return nil
		}

		return sink.Flush()
	}

	for i := 0; i < opts.ReadSafetyCap; i++ {
		select {
		case <-ctx.Done():
			return flush()
		default:
		}

		read, err := o.adapter.Read(ctx, 0)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch {
		case read.Code > 0:
			result.ReadCount++

			if read.Filename != "" && read.Filename != currentFile {
				if currentFile != "" {
					if err := flush(); err != nil {
						return fmt.Errorf("flush on file boundary: %w", err)
					}
				}

				currentFile = read.Filename
			}

			o.dispatch(read.Payload, sink, result)
		case read.Code == 0:
			return flush()
		case read.Code == -1, read.Code == -3:
			o.clock.Sleep(ctx, opts.ReadRetryWait)
		default:
			_ = flush()

			return &vendoradapter.ErrSessionFailed{Method: "Read", Code: read.Code}
		}
	}

	return flush()
}

// dispatch demultiplexes and parses one payload. Unknown specs are
// silently dropped (not a failure); parse errors are counted into the
// result's trace without failing the cycle.
func (o *Orchestrator) dispatch(payload []byte, sink Sink, result *FetchResult) {
	table, rows, ok, err := o.demux.Parse(o.family, payload)
	if !ok {
		return
	}

	if err != nil {
		result.ParseErrors = append(result.ParseErrors, err.Error())

		return
	}

	for _, row := range rows {
		result.Records = append(result.Records, ParsedRecord{Table: table, Row: row})

		if sink != nil {
			if err := sink.Write(table, row); err != nil {
				result.ParseErrors = append(result.ParseErrors, fmt.Sprintf("write %s: %v", table, err))
			}
		}
	}
}

func (o *Orchestrator) closeQuiet(ctx context.Context) {
	if err := o.adapter.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn("adapter close failed", slog.String("error", err.Error()))
	}
}
