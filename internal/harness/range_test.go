package harness

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSpawner returns a canned (stdout, stderr, err) per date, and
// sleeps for the configured duration first — letting tests simulate a
// child that blows past its per-day timeout without forking anything.
type scriptedSpawner struct {
	sleep map[string]time.Duration
	out   map[string]ChildResult
}

func (s *scriptedSpawner) Spawn(ctx context.Context, date, _ string, _ int) ([]byte, []byte, error) {
	if d, ok := s.sleep[date]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	result, ok := s.out[date]
	if !ok {
		result = ChildResult{Date: date}
	}

	encoded, err := json.Marshal(result)

	return encoded, nil, err
}

// Scenario 5: subprocess range with one bad date. The middle child stub
// exceeds the 1s per-day timeout; the other two succeed. Expected: three
// ChildResult entries, the middle one carrying a Timeout error and no
// records.
func TestFetchRange_OneDayTimesOutWithoutShorteningTheRange(t *testing.T) {
	spawner := &scriptedSpawner{
		sleep: map[string]time.Duration{"20240602": 1200 * time.Millisecond},
		out: map[string]ChildResult{
			"20240601": {Date: "20240601", Type: "RACE", OpenRC: 0},
			"20240603": {Date: "20240603", Type: "RACE", OpenRC: 0},
		},
	}

	results, err := FetchRange(context.Background(), spawner, "20240601", "20240603", "RACE", 1*time.Second)

	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "20240601", results[0].Date)
	assert.Nil(t, results[0].Error)

	assert.Equal(t, "20240602", results[1].Date)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, "Timeout after 1 seconds", *results[1].Error)
	assert.Empty(t, results[1].Records)

	assert.Equal(t, "20240603", results[2].Date)
	assert.Nil(t, results[2].Error)
}

func TestFetchRange_RejectsInvalidDateBeforeSpawning(t *testing.T) {
	spawner := &scriptedSpawner{}

	_, err := FetchRange(context.Background(), spawner, "2024-06-01", "20240603", "RACE", time.Second)

	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFetchRange_RejectsInvalidDataspecBeforeSpawning(t *testing.T) {
	spawner := &scriptedSpawner{}

	_, err := FetchRange(context.Background(), spawner, "20240601", "20240603", "race!", time.Second)

	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestValidateDate_AcceptsOnlyEightDigits(t *testing.T) {
	assert.NoError(t, ValidateDate("20260101"))
	assert.Error(t, ValidateDate("2026-01-01"))
	assert.Error(t, ValidateDate("202601011"))
}

func TestValidateDataspec_AcceptsUppercaseAlphanumericUnderscore(t *testing.T) {
	assert.NoError(t, ValidateDataspec("RACE"))
	assert.NoError(t, ValidateDataspec("O1"))
	assert.Error(t, ValidateDataspec("race"))
	assert.Error(t, ValidateDataspec("RACE!"))
}
