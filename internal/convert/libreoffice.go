package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultLibreOfficeBin is the command name of the office suite launcher.
const DefaultLibreOfficeBin = "libreoffice"

// LibreOffice converts documents with a headless office suite. The suite
// writes <name>.txt into a scratch directory, which is removed afterwards.
type LibreOffice struct {
	Bin     string
	Timeout time.Duration
	Logger  *zap.Logger
}

func (l *LibreOffice) Name() string { return "libreoffice" }

func (l *LibreOffice) Convert(ctx context.Context, path string) (string, error) {
	if err := CheckInput(path); err != nil {
		return "", err
	}
	bin := l.Bin
	if bin == "" {
		bin = DefaultLibreOfficeBin
	}
	log := nopIfNil(l.Logger)

	outDir, err := os.MkdirTemp("", "hwpcat-lo-")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	// The suite's exit status is unreliable across versions; the output file
	// decides success. Timeouts and a missing binary still fail outright.
	_, err = run(ctx, log, l.Timeout, bin, "--headless", "--convert-to", "txt:Text", "--outdir", outDir, path)
	if err != nil && !errors.Is(err, ErrToolFailure) {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	txtPath := filepath.Join(outDir, base+".txt")
	data, readErr := os.ReadFile(txtPath)
	if readErr != nil {
		if err != nil {
			return "", err
		}
		if errors.Is(readErr, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: converted text file not found: %s", ErrToolFailure, txtPath)
		}
		return "", fmt.Errorf("%w: %w", ErrToolFailure, readErr)
	}
	if err != nil {
		log.Warn("converter reported failure but produced output", zap.Error(err))
	}
	return string(data), nil
}
