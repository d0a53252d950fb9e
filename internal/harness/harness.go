// Package harness implements the Subprocess Fetch Harness: it spawns one
// child process per (date, dataspec) fetch so a vendor session leak never
// accumulates across an entire backfill range, and it converts one
// Download Orchestrator run into the single-JSON-document stdout contract
// a spawned child emits.
package harness

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidArgument is returned when a fetch task's date or dataspec
// fails validation before any child process is spawned.
var ErrInvalidArgument = errors.New("harness: invalid argument")

var (
	dateRe     = regexp.MustCompile(`^[0-9]{8}$`)
	dataspecRe = regexp.MustCompile(`^[A-Z0-9_]+$`)
)

// ValidateDate checks date against the required YYYYMMDD shape.
func ValidateDate(date string) error {
	if !dateRe.MatchString(date) {
		return fmt.Errorf("%w: date %q must match ^[0-9]{8}$", ErrInvalidArgument, date)
	}

	return nil
}

// ValidateDataspec checks dataspec against the required closed-alphabet shape.
func ValidateDataspec(dataspec string) error {
	if !dataspecRe.MatchString(dataspec) {
		return fmt.Errorf("%w: dataspec %q must match ^[A-Z0-9_]+$", ErrInvalidArgument, dataspec)
	}

	return nil
}
