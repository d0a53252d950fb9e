package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "20060102"

// defaultDownloadOption is the Open option used by range fetches unless
// the caller overrides it; 1 selects normal (non-setup) operation.
const defaultDownloadOption = 1

// FetchRange runs one child fetch per date in [startDate, endDate]
// (inclusive), enforcing perDayTimeout per child and never letting one
// day's failure abort the range: a timed-out or unparseable child becomes
// a ChildResult carrying a descriptive Error, not a short range.
func FetchRange(ctx context.Context, spawner Spawner, startDate, endDate, dataspec string, perDayTimeout time.Duration) ([]ChildResult, error) {
	if err := ValidateDate(startDate); err != nil {
		return nil, err
	}

	if err := ValidateDate(endDate); err != nil {
		return nil, err
	}

	if err := ValidateDataspec(dataspec); err != nil {
		return nil, err
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q: %v", ErrInvalidArgument, startDate, err)
	}

	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q: %v", ErrInvalidArgument, endDate, err)
	}

	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %q before start date %q", ErrInvalidArgument, endDate, startDate)
	}

	var results []ChildResult

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		results = append(results, fetchOneDay(ctx, spawner, d.Format(dateLayout), dataspec, perDayTimeout))
	}

	return results, nil
}

func fetchOneDay(ctx context.Context, spawner Spawner, date, dataspec string, perDayTimeout time.Duration) ChildResult {
	childCtx, cancel := context.WithTimeout(ctx, perDayTimeout)
	defer cancel()

	correlationID := uuid.NewString()

	stdout, stderr, err := spawner.Spawn(childCtx, date, dataspec, defaultDownloadOption)

	if errors.Is(childCtx.Err(), context.DeadlineExceeded) {
		return ChildResult{
			Date:          date,
			Type:          dataspec,
			Error:         errString(fmt.Sprintf("Timeout after %d seconds", int(perDayTimeout.Seconds()))),
			CorrelationID: correlationID,
		}
	}

	if err != nil {
		return ChildResult{
			Date:          date,
			Type:          dataspec,
			Error:         errString(fmt.Sprintf("spawn error: %v; stderr: %s", err, stderr)),
			CorrelationID: correlationID,
		}
	}

	var result ChildResult
	if jsonErr := json.Unmarshal(stdout, &result); jsonErr != nil {
		return ChildResult{
			Date:          date,
			Type:          dataspec,
			Error:         errString(fmt.Sprintf("parse error: %v; stderr: %s", jsonErr, stderr)),
			CorrelationID: correlationID,
		}
	}

	if result.CorrelationID == "" {
		result.CorrelationID = correlationID
	}

	return result
}
