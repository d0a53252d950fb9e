package orchestrator

import (
	"context"
	"log/slog"
)

const defaultMaxBackgroundCycles = 500

// BackgroundDownloadResult summarizes a RunBackgroundDownloadLoop run.
type BackgroundDownloadResult struct {
	Cycles          int
	DownloadRemaining int
	GaveUp          bool
}

// RunBackgroundDownloadLoop drives open -> immediate-close cycles (no
// read) to push the vendor's server-side spooling forward ahead of a bulk
// catch-up read pass. It applies the full backoff ladder across cycles —
// -421 holds the session and sleeps 180s, -502 holds and sleeps 30s, a
// connection drop closes/reconnects (giving up after a second failed
// reconnect), and any other negative sleeps 60s and counts toward the
// 10-consecutive-error limit. Terminates when download_count reaches zero
// or after maxCycles (0 selects the default of 500).
func (o *Orchestrator) RunBackgroundDownloadLoop(ctx context.Context, dataspec, fromTimestamp string, maxCycles int) BackgroundDownloadResult {
	if maxCycles <= 0 {
		maxCycles = defaultMaxBackgroundCycles
	}

	consecutiveErrors := 0
	reconnectAttempts := 0

	for cycle := 0; cycle < maxCycles; cycle++ {
		select {
		case <-ctx.Done():
			return BackgroundDownloadResult{Cycles: cycle, GaveUp: true}
		default:
		}

		open, err := o.adapter.Open(ctx, dataspec, fromTimestamp, 2)
		if err != nil {
			o.logger.Warn("background cycle: connection error, reconnecting", slog.String("error", err.Error()))
			o.closeQuiet(ctx)

			reconnectAttempts++
			if reconnectAttempts > 1 {
				return BackgroundDownloadResult{Cycles: cycle, GaveUp: true}
			}

			o.clock.Sleep(ctx, connectionDropWait)

			continue
		}

		reconnectAttempts = 0

		o.closeQuiet(ctx)

		if open.DownloadCount == 0 && isOpenRecoverable(open.Code) {
			return BackgroundDownloadResult{Cycles: cycle + 1, DownloadRemaining: 0}
		}

		switch open.Code {
		case -421:
			consecutiveErrors++
			o.clock.Sleep(ctx, serverTransientWait)
		case -502:
			consecutiveErrors++
			o.clock.Sleep(ctx, transferErrorWait)
		default:
			if !isOpenRecoverable(open.Code) {
				consecutiveErrors++
				o.clock.Sleep(ctx, otherNegativeErrorWait)
			} else {
				consecutiveErrors = 0
			}
		}

		if consecutiveErrors >= maxConsecutiveErrors {
			return BackgroundDownloadResult{Cycles: cycle + 1, DownloadRemaining: open.DownloadCount, GaveUp: true}
		}
	}

	return BackgroundDownloadResult{Cycles: maxCycles, GaveUp: true}
}
