package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Spawner runs one (date, dataspec) fetch as a child process and returns
// its captured stdout/stderr. Abstracted so range tests can script child
// behavior (including simulated timeouts) without actually forking a
// binary that parses flags.
type Spawner interface {
	Spawn(ctx context.Context, date, dataspec string, option int) (stdout, stderr []byte, err error)
}

// ExecSpawner spawns the current binary (os.Args[0]) with --fetch-one,
// matching the redesigned harness contract: no script generation, no
// interpreter, one JSON document on stdout per child.
type ExecSpawner struct {
	// BinaryPath overrides os.Args[0]; tests set this to a short-lived
	// helper binary or leave it empty to use the running executable.
	BinaryPath string
}

func (s ExecSpawner) Spawn(ctx context.Context, date, dataspec string, option int) ([]byte, []byte, error) {
	bin := s.BinaryPath
	if bin == "" {
		bin = os.Args[0]
	}

	cmd := exec.CommandContext(ctx, bin,
		"--fetch-one",
		"--date", date,
		"--dataspec", dataspec,
		"--option", strconv.Itoa(option),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("harness: spawning fetch-one child: %w", err)
	}

	return stdout.Bytes(), stderr.Bytes(), nil
}
