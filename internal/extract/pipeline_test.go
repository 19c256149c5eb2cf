package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hanpama/hwptext/internal/convert"
	"github.com/hanpama/hwptext/internal/hwpv5"
	"github.com/hanpama/hwptext/internal/hwpx"
	"github.com/hanpama/hwptext/internal/testutil"
	"go.uber.org/zap/zaptest"
)

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	return New(append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

func compressedDoc(t *testing.T, dir string) string {
	t.Helper()
	return testutil.WriteCFB(t, dir, "doc.hwp", map[string][]byte{
		"FileHeader":        testutil.FileHeader(testutil.PropCompressed),
		"BodyText/Section0": testutil.Deflate(testutil.Section("안녕하세요", "Hello")),
		"BodyText/Section1": testutil.Deflate(testutil.Section("둘째 구역")),
	})
}

func TestRunRecord(t *testing.T) {
	path := compressedDoc(t, t.TempDir())

	got, err := newPipeline(t).Run(context.Background(), path, Record)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "안녕하세요\nHello\n\n둘째 구역\n"; got != want {
		t.Errorf("Run(record) = %q, want %q", got, want)
	}
}

func TestRunRecordUncompressed(t *testing.T) {
	path := testutil.WriteCFB(t, t.TempDir(), "plain.hwp", map[string][]byte{
		"BodyText/Section0": testutil.Section("압축 안 됨"),
	})

	got, err := newPipeline(t).Run(context.Background(), path, Record)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "압축 안 됨\n" {
		t.Errorf("Run(record) = %q", got)
	}
}

func TestRunRecordKeepsEmptyRecords(t *testing.T) {
	var blank []byte
	blank = append(blank, testutil.Record12(hwpv5.TagParaText, 0, nil)...)
	blank = append(blank, testutil.Record12(hwpv5.TagParaText, 0, nil)...)
	path := testutil.WriteCFB(t, t.TempDir(), "blank.hwp", map[string][]byte{
		"FileHeader":        testutil.FileHeader(testutil.PropCompressed),
		"BodyText/Section0": testutil.Deflate(testutil.Section("첫")),
		"BodyText/Section1": testutil.Deflate(blank),
		"BodyText/Section2": testutil.Deflate(testutil.Section("셋")),
	})

	got, err := newPipeline(t).Run(context.Background(), path, Record)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "첫\n\n\n\n\n셋\n"; got != want {
		t.Errorf("Run(record) = %q, want %q", got, want)
	}
}

func TestRunHonoursUncompressedHeader(t *testing.T) {
	path := testutil.WriteCFB(t, t.TempDir(), "stored.hwp", map[string][]byte{
		"FileHeader":        testutil.FileHeader(0),
		"BodyText/Section0": testutil.Section("저장만"),
	})

	got, err := newPipeline(t).Run(context.Background(), path, Record)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "저장만\n" {
		t.Errorf("Run(record) = %q", got)
	}
}

func TestResyncRecoversMisalignedSection(t *testing.T) {
	section := append([]byte{1, 2, 3}, testutil.Record12(hwpv5.TagParaText, 0, testutil.Wide("hello"))...)
	path := testutil.WriteCFB(t, t.TempDir(), "shifted.hwp", map[string][]byte{
		"FileHeader":        testutil.FileHeader(testutil.PropCompressed),
		"BodyText/Section0": testutil.Deflate(section),
	})
	p := newPipeline(t)

	got, err := p.Run(context.Background(), path, Record)
	if err != nil || got != "" {
		t.Errorf("Run(record) = %q, %v; the plain walk should stop at the bad header", got, err)
	}

	got, err = p.Run(context.Background(), path, Resync)
	if err != nil {
		t.Fatalf("Run(resync): %v", err)
	}
	if got != "hello\n" {
		t.Errorf("Run(resync) = %q, want %q", got, "hello\n")
	}

	var found bool
	for _, r := range p.Compare(context.Background(), path) {
		if r.Strategy == Resync {
			found = r.Text == "hello\n"
		}
	}
	if !found {
		t.Errorf("multi candidates should include the resyncing record walk")
	}

	if got := DecodeRecords(section, " ", hwpv5.WithResync()); got != "hello " {
		t.Errorf("DecodeRecords(resync) = %q", got)
	}
}

func TestRunScanAndWhole(t *testing.T) {
	path := compressedDoc(t, t.TempDir())
	p := newPipeline(t)

	for _, s := range []Strategy{Scan, Whole} {
		got, err := p.Run(context.Background(), path, s)
		if err != nil {
			t.Fatalf("Run(%s): %v", s, err)
		}
		for _, want := range []string{"안녕하세요", "Hello", "둘째 구역"} {
			if !strings.Contains(got, want) {
				t.Errorf("Run(%s) = %q, missing %q", s, got, want)
			}
		}
	}
}

func TestRunParagraph(t *testing.T) {
	path := testutil.WriteCFB(t, t.TempDir(), "packed.hwp", map[string][]byte{
		"BodyText/Section0": testutil.Deflate(testutil.PackedSection("첫 문단", "둘째 문단")),
		"BodyText/Section1": testutil.Deflate(testutil.PackedSection("셋째")),
	})

	got, err := newPipeline(t).Run(context.Background(), path, Paragraph)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "첫 문단\n둘째 문단\n셋째"; got != want {
		t.Errorf("Run(paragraph) = %q, want %q", got, want)
	}
}

func TestRunDistributionDocument(t *testing.T) {
	key := []byte("fedcba9876543210")
	path := testutil.WriteCFB(t, t.TempDir(), "dist.hwp", map[string][]byte{
		"FileHeader":        testutil.FileHeader(testutil.PropCompressed | testutil.PropDistribution),
		"BodyText/Section0": {},
		"ViewText/Section0": testutil.Distribute(testutil.Deflate(testutil.Section("배포용")), 99, key),
	})

	got, err := newPipeline(t).Run(context.Background(), path, Record)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "배포용\n" {
		t.Errorf("Run(record) = %q", got)
	}
}

func TestMultiPicksLongest(t *testing.T) {
	path := compressedDoc(t, t.TempDir())
	p := newPipeline(t)

	got, err := p.Run(context.Background(), path, Multi)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	longest := 0
	for _, r := range p.Compare(context.Background(), path) {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Strategy, r.Err)
		}
		if n := CharCount(r.Text); n > longest {
			longest = n
		}
	}
	if CharCount(got) != longest {
		t.Errorf("multi returned %d chars, longest candidate has %d", CharCount(got), longest)
	}
}

func TestAutoSelectsByExtension(t *testing.T) {
	dir := t.TempDir()
	hwpxPath := testutil.WriteFile(t, dir, "doc.HWPX", testutil.BuildHWPX(testutil.SectionXML("A"), testutil.SectionXML("B")))

	got, err := newPipeline(t).Run(context.Background(), hwpxPath, Auto)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "A\nB" {
		t.Errorf("Run(auto, hwpx) = %q", got)
	}

	if s := Auto.Resolve(filepath.Join(dir, "doc.hwp")); s != Multi {
		t.Errorf("Resolve(.hwp) = %s, want multi", s)
	}
	if s := Scan.Resolve("doc.hwpx"); s != Scan {
		t.Errorf("explicit strategy must not be overridden, got %s", s)
	}
}

func TestHWPXErrors(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t)

	empty := testutil.WriteFile(t, dir, "empty.hwpx", testutil.BuildHWPX(testutil.SectionXML()))
	if _, err := p.Run(context.Background(), empty, HWPX); !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}

	missing := filepath.Join(dir, "missing.hwpx")
	_, err := p.Run(context.Background(), missing, Auto)
	if !errors.Is(err, convert.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
	if out := Output("", err); out != "ERROR: File not found: "+missing {
		t.Errorf("Output() = %q", out)
	}

	notZip := testutil.WriteFile(t, dir, "bad.hwpx", []byte("plain text"))
	_, err = p.Run(context.Background(), notZip, HWPX)
	if !errors.Is(err, hwpx.ErrNotZip) {
		t.Errorf("expected ErrNotZip, got %v", err)
	}
	if out := Output("", err); out != "ERROR: not a valid HWPX (ZIP) file: zip: not a valid zip file" {
		t.Errorf("Output() = %q", out)
	}
}

func TestCorruptContainer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.hwp")
	data := testutil.BuildCFB(map[string][]byte{"BodyText/Section0": testutil.Section("x")})
	copy(data, "GARBAGE!")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	p := newPipeline(t)
	for _, s := range []Strategy{Multi, Scan, Record, Resync, Whole, Paragraph} {
		got, err := p.Run(context.Background(), path, s)
		if err == nil {
			t.Fatalf("Run(%s) = %q, expected an error", s, got)
		}
		if !errors.Is(err, hwpv5.ErrContainerOpen) {
			t.Errorf("Run(%s): expected ErrContainerOpen, got %v", s, err)
		}
		if out := Output(got, err); !strings.HasPrefix(out, "ERROR:") {
			t.Errorf("Run(%s): output %q lacks the ERROR: prefix", s, out)
		}
	}

	_, err := p.Run(context.Background(), path, Multi)
	if !errors.Is(err, ErrNoText) {
		t.Errorf("multi: expected ErrNoText, got %v", err)
	}
	if n := strings.Count(err.Error(), "bad signature"); n != 1 {
		t.Errorf("shared container error should be reported once, got %d in %q", n, err)
	}
}

func TestMultiNoText(t *testing.T) {
	path := testutil.WriteCFB(t, t.TempDir(), "blank.hwp", map[string][]byte{
		"BodyText/Section0": testutil.Deflate(make([]byte, 64)),
	})

	_, err := newPipeline(t).Run(context.Background(), path, Multi)
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

type stubConverter struct {
	name string
	text string
	err  error
	got  string
}

func (s *stubConverter) Name() string { return s.name }

func (s *stubConverter) Convert(_ context.Context, path string) (string, error) {
	s.got = path
	return s.text, s.err
}

func TestExternalStrategiesUseConverters(t *testing.T) {
	h := &stubConverter{name: "hwp5txt", text: "from hwp5txt"}
	lo := &stubConverter{name: "libreoffice", err: errors.New("boom")}
	p := newPipeline(t, WithConverter(HWP5Txt, h), WithConverter(LibreOffice, lo))

	got, err := p.Run(context.Background(), "in.hwp", HWP5Txt)
	if err != nil || got != "from hwp5txt" || h.got != "in.hwp" {
		t.Errorf("hwp5txt: got %q, %v (path %q)", got, err, h.got)
	}
	if _, err := p.Run(context.Background(), "in.hwp", LibreOffice); err == nil || err.Error() != "boom" {
		t.Errorf("libreoffice: expected converter error, got %v", err)
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	if _, err := newPipeline(t).Run(context.Background(), "x.hwp", Strategy("bogus")); err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}
