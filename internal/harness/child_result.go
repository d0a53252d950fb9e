package harness

import (
	"github.com/google/uuid"

	"github.com/jravan/ingest/internal/orchestrator"
)

// RecordOut is one parsed record in the stdout JSON contract: just enough
// to audit a fetch from the outside, never the full row payload of a bulk
// archive (that goes to the store, not to a process's stdout).
type RecordOut struct {
	Table string            `json:"table"`
	Row   map[string]string `json:"row"`
}

// ChildResult is the single JSON document a `--fetch-one` child prints to
// stdout, matching the subprocess bridge contract. Errors travel in Error
// only; the process still exits 0 as long as this document was produced.
type ChildResult struct {
	Date           string      `json:"date"`
	Type           string      `json:"type"`
	Records        []RecordOut `json:"records"`
	OpenRC         int         `json:"open_rc"`
	ReadCount      int         `json:"read_count"`
	DownloadCount  int         `json:"download_count"`
	DownloadStatus int         `json:"download_status"`
	Error          *string     `json:"error"`
	// CorrelationID ties one child's stdout back to the range invocation
	// that spawned it, for log correlation across process boundaries.
	CorrelationID string `json:"correlation_id"`
}

// FromFetchResult converts one Orchestrator.Fetch outcome into the
// subprocess stdout shape.
func FromFetchResult(result orchestrator.FetchResult) ChildResult {
	records := make([]RecordOut, len(result.Records))
	for i, r := range result.Records {
		records[i] = RecordOut{Table: r.Table, Row: map[string]string(r.Row)}
	}

	out := ChildResult{
		Date:          result.Date,
		Type:          result.Dataspec,
		Records:       records,
		OpenRC:        result.OpenCode,
		ReadCount:     result.ReadCount,
		DownloadCount: result.DownloadCount,
		CorrelationID: uuid.NewString(),
	}

	if len(result.StatusTrace) > 0 {
		out.DownloadStatus = result.StatusTrace[len(result.StatusTrace)-1]
	}

	if result.Error != "" {
		errMsg := result.Error
		out.Error = &errMsg
	}

	return out
}

func errString(msg string) *string {
	return &msg
}
