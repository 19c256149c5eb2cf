package convert

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultHWP5TxtBin is the command name of pyhwp's text converter.
const DefaultHWP5TxtBin = "hwp5txt"

// HWP5Txt runs `hwp5txt <file>` and returns its standard output.
type HWP5Txt struct {
	Bin     string
	Timeout time.Duration
	Logger  *zap.Logger
}

func (h *HWP5Txt) Name() string { return "hwp5txt" }

func (h *HWP5Txt) Convert(ctx context.Context, path string) (string, error) {
	if err := CheckInput(path); err != nil {
		return "", err
	}
	bin := h.Bin
	if bin == "" {
		bin = DefaultHWP5TxtBin
	}

	res, err := run(ctx, nopIfNil(h.Logger), h.Timeout, bin, path)
	if err != nil {
		return "", err
	}
	return string(res.stdout), nil
}
