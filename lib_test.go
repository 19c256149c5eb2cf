package hwptext

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/hanpama/hwptext/internal/testutil"
)

func sampleHWP(t *testing.T) string {
	t.Helper()
	return testutil.WriteCFB(t, t.TempDir(), "sample.hwp", map[string][]byte{
		"FileHeader":        testutil.FileHeader(testutil.PropCompressed),
		"BodyText/Section0": testutil.Deflate(testutil.Section("제목", "본문 첫 줄")),
	})
}

func TestExtract(t *testing.T) {
	path := sampleHWP(t)

	got, err := Extract(context.Background(), path, WithStrategy(StrategyRecord), WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "제목\n본문 첫 줄\n" {
		t.Errorf("Extract() = %q", got)
	}

	got, err = Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract(auto): %v", err)
	}
	for _, want := range []string{"제목", "본문 첫 줄"} {
		if !strings.Contains(got, want) {
			t.Errorf("Extract(auto) = %q, missing %q", got, want)
		}
	}
}

func TestExtractHWPX(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "doc.hwpx", testutil.BuildHWPX(testutil.SectionXML("가", "나")))

	got, err := Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "가\n나" {
		t.Errorf("Extract() = %q", got)
	}
}

func TestText(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "broken.hwp", []byte("this is not an OLE file"))

	out := Text(context.Background(), path)
	if !strings.HasPrefix(out, "ERROR: ") {
		t.Errorf("Text() = %q, expected an ERROR: line", out)
	}

	_, err := Extract(context.Background(), path, WithStrategy(StrategyScan))
	if !errors.Is(err, ErrContainerOpen) {
		t.Errorf("expected ErrContainerOpen, got %v", err)
	}
	if FormatError(err) != "ERROR: "+err.Error() {
		t.Errorf("FormatError() = %q", FormatError(err))
	}
}

func TestExternalStrategyMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.hwp")

	_, err := Extract(context.Background(), missing, WithStrategy(StrategyHWP5Txt), WithHWP5Txt("/nonexistent/hwp5txt"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if out := Text(context.Background(), missing, WithStrategy(StrategyLibreOffice)); out != "ERROR: File not found: "+missing {
		t.Errorf("Text() = %q", out)
	}
}

func TestStrategies(t *testing.T) {
	all := Strategies()
	for _, s := range all {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %s, %v", s, got, err)
		}
	}
	if len(all) != 10 || all[0] != StrategyAuto {
		t.Errorf("Strategies() = %v", all)
	}
}

func TestCompare(t *testing.T) {
	results := Compare(context.Background(), sampleHWP(t), WithStrategy(StrategyHWPX))
	want := []Strategy{StrategyScan, StrategyRecord, StrategyWhole, StrategyParagraph, StrategyResync}
	if len(results) != len(want) {
		t.Fatalf("Compare returned %d results, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r.Strategy != want[i] {
			t.Errorf("results[%d] = %s, want %s", i, r.Strategy, want[i])
		}
		if r.Err != nil {
			t.Errorf("%s: %v", r.Strategy, r.Err)
		}
	}
}
