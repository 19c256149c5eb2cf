// Package convert runs external document converters as subprocesses. The
// converters are optional: nothing in the in-process decoders depends on
// them being installed.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single converter run.
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Wait keeps draining pipes after the process is
// killed, in case it left children holding them open.
const waitDelay = 2 * time.Second

var (
	// ErrFileNotFound reports that the input document does not exist.
	ErrFileNotFound = errors.New("File not found")
	// ErrToolTimeout reports that the converter ran past its deadline and was killed.
	ErrToolTimeout = errors.New("converter timed out")
	// ErrToolMissing reports that the converter executable could not be found.
	ErrToolMissing = errors.New("converter not found")
	// ErrToolFailure reports a non-zero exit or missing output.
	ErrToolFailure = errors.New("converter failed")
)

// Converter turns a document into plain text.
type Converter interface {
	Name() string
	Convert(ctx context.Context, path string) (string, error)
}

type result struct {
	stdout []byte
	stderr []byte
}

// run executes bin with args under timeout and classifies the failure modes
// shared by every converter.
func run(ctx context.Context, log *zap.Logger, timeout time.Duration, bin string, args ...string) (result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	res := result{stdout: stdout.Bytes(), stderr: stderr.Bytes()}
	log.Debug("converter finished",
		zap.String("bin", bin),
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	switch {
	case err == nil:
		return res, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%w: %s after %s", ErrToolTimeout, bin, timeout)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return res, fmt.Errorf("%w: %s: %w", ErrToolMissing, bin, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		var detail string
		if s := strings.TrimSpace(string(res.stderr)); s != "" {
			detail = "\n" + s
		}
		return res, fmt.Errorf("%w: %s exited with code %d%s", ErrToolFailure, bin, exitErr.ExitCode(), detail)
	}
	return res, fmt.Errorf("%w: %s: %w", ErrToolFailure, bin, err)
}

// CheckInput returns ErrFileNotFound when path does not exist.
func CheckInput(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return err
	}
	return nil
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
