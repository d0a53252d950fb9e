// Package main provides the jravan fetcher: the binary that drives one
// vendor session through the Orchestrator and persists parsed rows via the
// Ingest Writer. It runs in five modes selected by -mode:
//
//   - daemon:    long-running ops server plus a periodic fetch loop (default)
//   - one-shot:  a single Fetch for -date/-dataspec, then exit
//   - fetch-one: a single Fetch whose result is printed as the one JSON
//     document the Subprocess Fetch Harness contract expects on stdout;
//     this is the mode -mode=range's children re-invoke this same binary
//     with
//   - range:     drives internal/harness.FetchRange over [-date, -end-date],
//     spawning one -mode=fetch-one child per day
//   - background: runs the Background Download Loop for -dataspec from
//     -date, without reading any payloads
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jravan/ingest/internal/catalog"
	"github.com/jravan/ingest/internal/harness"
	"github.com/jravan/ingest/internal/jvrecord"
	"github.com/jravan/ingest/internal/opsserver"
	"github.com/jravan/ingest/internal/orchestrator"
	"github.com/jravan/ingest/internal/realtime"
	"github.com/jravan/ingest/internal/store"
	"github.com/jravan/ingest/internal/vendoradapter"
	"golang.org/x/time/rate"
)

// backgroundLoopRateLimit caps the Background Download Loop at one session
// reopen per second, on top of the backoff ladder's own fixed wait
// constants, per internal/orchestrator/ratelimit.go's RateLimitedClock.
const backgroundLoopRateLimit = 1

const (
	appVersion = "0.1.0-dev"
	appName    = "jravan-fetcher"
)

func main() {
	var (
		mode          = flag.String("mode", "daemon", "daemon|one-shot|fetch-one|range|background")
		fetchOneFlag  = flag.Bool("fetch-one", false, "shorthand for -mode=fetch-one, used by harness.ExecSpawner children")
		date          = flag.String("date", "", "fetch date, YYYYMMDD (background mode: from-timestamp prefix)")
		endDate       = flag.String("end-date", "", "range mode: last fetch date, YYYYMMDD")
		dataspec      = flag.String("dataspec", "", "vendor dataspec, e.g. RACE")
		option        = flag.Int("option", 1, "download option: 1 normal, 2 setup/bulk")
		perDayTimeout = flag.Duration("per-day-timeout", 10*time.Minute, "range mode: wall-clock timeout per child")
		maxCycles     = flag.Int("max-cycles", 0, "background mode: cycle cap, 0 selects the default of 500")
		showVersion   = flag.Bool("version", false, "show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	logger := newLogger()
	cfg := loadFetcherConfig()

	if *fetchOneFlag {
		*mode = "fetch-one"
	}

	switch *mode {
	case "fetch-one":
		runFetchOne(logger, cfg, *date, *dataspec, *option)
	case "range":
		runRange(logger, *date, *endDate, *dataspec, *perDayTimeout)
	case "one-shot":
		runOneShot(logger, cfg, *date, *dataspec, *option)
	case "background":
		runBackground(logger, cfg, *date, *dataspec, *maxCycles)
	case "daemon":
		runDaemon(logger, cfg)
	default:
		log.Fatalf("unknown -mode %q", *mode)
	}
}

// runBackground drives the Background Download Loop ahead of a bulk
// catch-up read pass, pushing the vendor's server-side spooling forward
// without reading any payloads.
func runBackground(logger *slog.Logger, cfg fetcherConfig, fromTimestamp, dataspec string, maxCycles int) {
	if err := harness.ValidateDataspec(dataspec); err != nil {
		log.Fatalf("invalid dataspec: %v", err)
	}

	clock := orchestrator.NewRateLimitedClock(orchestrator.SystemClock{}, rate.NewLimiter(backgroundLoopRateLimit, 1))

	orch, _, closeFn, err := buildOrchestrator(logger, cfg, "NL", clock)
	if err != nil {
		log.Fatalf("building orchestrator: %v", err)
	}
	defer closeFn()

	result := orch.RunBackgroundDownloadLoop(context.Background(), dataspec, fromTimestamp, maxCycles)

	logger.Info("background download loop complete",
		slog.Int("cycles", result.Cycles),
		slog.Int("download_remaining", result.DownloadRemaining),
		slog.Bool("gave_up", result.GaveUp),
	)

	if result.GaveUp {
		os.Exit(1)
	}
}

// runFetchOne performs exactly one Fetch and prints exactly one JSON
// document to stdout, per the subprocess bridge contract — this process's
// exit code only promises that document is well-formed, not that the
// fetch itself succeeded (a failure travels in the document's error field).
func runFetchOne(logger *slog.Logger, cfg fetcherConfig, date, dataspec string, option int) {
	if err := harness.ValidateDate(date); err != nil {
		emitFatalChildError(date, dataspec, err)
	}

	if err := harness.ValidateDataspec(dataspec); err != nil {
		emitFatalChildError(date, dataspec, err)
	}

	orch, sink, closeFn, err := buildOrchestrator(logger, cfg, "NL", orchestrator.SystemClock{})
	if err != nil {
		emitFatalChildError(date, dataspec, err)
	}
	defer closeFn()

	result := orch.FetchAndWrite(context.Background(), date, dataspec, orchestrator.Options{DownloadOption: option}, sink)

	out := harness.FromFetchResult(result)

	encoded, err := json.Marshal(out)
	if err != nil {
		emitFatalChildError(date, dataspec, err)
	}

	fmt.Println(string(encoded))
}

// emitFatalChildError prints a well-formed ChildResult carrying err and
// exits 0: the child's own parse/validation failures still honor the "one
// JSON document on stdout" contract rather than crashing silently.
func emitFatalChildError(date, dataspec string, err error) {
	msg := err.Error()
	out := harness.ChildResult{Date: date, Type: dataspec, Error: &msg}

	encoded, marshalErr := json.Marshal(out)
	if marshalErr != nil {
		log.Fatalf("fetch-one: could not even marshal the error document: %v (original: %v)", marshalErr, err)
	}

	fmt.Println(string(encoded))
	os.Exit(0)
}

// runRange spawns one -mode=fetch-one child per date in [date, endDate],
// using this same binary (os.Args[0]) as the child, per the redesigned
// harness contract that spawns a known binary instead of a generated
// script.
func runRange(logger *slog.Logger, date, endDate, dataspec string, perDayTimeout time.Duration) {
	spawner := harness.ExecSpawner{}

	results, err := harness.FetchRange(context.Background(), spawner, date, endDate, dataspec, perDayTimeout)
	if err != nil {
		log.Fatalf("range fetch: %v", err)
	}

	for _, r := range results {
		if r.Error != nil {
			logger.Warn("range child reported error", slog.String("date", r.Date), slog.String("error", *r.Error))
		}
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		log.Fatalf("range fetch: marshaling results: %v", err)
	}

	fmt.Println(string(encoded))
}

// runOneShot is runFetchOne's human-facing counterpart: same Fetch, but
// logged and reported for an operator at a terminal rather than consumed
// by a parent process.
func runOneShot(logger *slog.Logger, cfg fetcherConfig, date, dataspec string, option int) {
	if err := harness.ValidateDate(date); err != nil {
		log.Fatalf("invalid date: %v", err)
	}

	if err := harness.ValidateDataspec(dataspec); err != nil {
		log.Fatalf("invalid dataspec: %v", err)
	}

	orch, sink, closeFn, err := buildOrchestrator(logger, cfg, "NL", orchestrator.SystemClock{})
	if err != nil {
		log.Fatalf("building orchestrator: %v", err)
	}
	defer closeFn()

	result := orch.FetchAndWrite(context.Background(), date, dataspec, orchestrator.Options{DownloadOption: option}, sink)

	logger.Info("fetch complete",
		slog.String("date", date),
		slog.String("dataspec", dataspec),
		slog.Int("read_count", result.ReadCount),
		slog.Int("records", len(result.Records)),
		slog.String("error", result.Error),
	)

	if result.Error != "" {
		os.Exit(1)
	}
}

// runDaemon starts the ops server and a periodic RT-family fetch loop,
// running until SIGINT/SIGTERM.
func runDaemon(logger *slog.Logger, cfg fetcherConfig) {
	orch, sink, closeFn, err := buildOrchestrator(logger, cfg, "RT", orchestrator.SystemClock{})
	if err != nil {
		log.Fatalf("building orchestrator: %v", err)
	}
	defer closeFn()

	var checker opsserver.HealthChecker
	if hc, ok := healthCheckerFromSink(sink); ok {
		checker = hc
	}

	ops := opsserver.NewServer(cfg.Ops, checker, logger)

	go runFetchLoop(context.Background(), logger, orch, sink, cfg.LoopInterval)

	if err := ops.Start(); err != nil {
		log.Fatalf("ops server: %v", err)
	}
}

func runFetchLoop(ctx context.Context, logger *slog.Logger, orch *orchestrator.Orchestrator, sink orchestrator.Sink, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			today := time.Now().Format("20060102")

			result := orch.FetchAndWrite(ctx, today, "RACE", orchestrator.Options{}, sink)
			if result.Error != "" {
				logger.Error("daemon fetch cycle failed", slog.String("error", result.Error))

				continue
			}

			logger.Info("daemon fetch cycle complete", slog.Int("records", len(result.Records)))
		}
	}
}

// healthCheckerFromSink exposes the underlying database connection's
// HealthCheck to /readyz when the sink is backed by one.
func healthCheckerFromSink(sink orchestrator.Sink) (opsserver.HealthChecker, bool) {
	type healthy interface {
		HealthCheck(ctx context.Context) error
	}

	if hc, ok := sink.(healthy); ok {
		return hc, true
	}

	return nil, false
}

// buildOrchestrator wires one Orchestrator plus its Sink for family (NL
// for archival fetches, RT for realtime), returning a close function that
// releases every resource it opened. clock lets -mode=background pass a
// RateLimitedClock; every other mode passes orchestrator.SystemClock{}
// directly.
func buildOrchestrator(logger *slog.Logger, cfg fetcherConfig, family string, clock orchestrator.Clock) (*orchestrator.Orchestrator, orchestrator.Sink, func(), error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading schema catalog: %w", err)
	}

	demux := jvrecord.NewDemultiplexer()
	jvrecord.RegisterDefaults(demux)

	adapter, adapterCloser, err := buildAdapter(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	orch := orchestrator.New(adapter, demux, family, cfg.ServiceKey, clock, logger)

	sink, sinkCloser, err := buildSink(logger, cfg, cat)
	if err != nil {
		adapterCloser()

		return nil, nil, nil, err
	}

	closeFn := func() {
		sinkCloser()
		adapterCloser()
	}

	return orch, sink, closeFn, nil
}

func buildAdapter(cfg fetcherConfig) (vendoradapter.Adapter, func(), error) {
	if cfg.UseFakeAdapter {
		return vendoradapter.NewFakeAdapter(), func() {}, nil
	}

	bridge := vendoradapter.NewBridgeAdapter(cfg.BridgeAddr, cfg.BridgeTimeout)
	if cfg.ServiceKeyHash != "" {
		bridge.WithServiceKeyHash(cfg.ServiceKeyHash)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BridgeTimeout)
	defer cancel()

	if err := bridge.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connecting to vendor bridge at %s: %w", cfg.BridgeAddr, err)
	}

	return bridge, func() { _ = bridge.Close(context.Background()) }, nil
}

func buildSink(logger *slog.Logger, cfg fetcherConfig, cat *catalog.Catalog) (orchestrator.Sink, func(), error) {
	dbConfig := store.LoadConfig()
	if err := dbConfig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("database configuration: %w", err)
	}

	conn, err := store.NewConnection(dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	writer := store.NewWriter(conn, cat, logger)

	var publisher *realtime.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = realtime.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		writer.WithRealtimePublisher(publisher)
	}

	closeFn := func() {
		_ = writer.Close()

		if publisher != nil {
			_ = publisher.Close()
		}

		_ = conn.Close()
	}

	return writer, closeFn, nil
}
