package hwpx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hanpama/hwptext/internal/testutil"
	"go.uber.org/zap/zaptest"
)

func openBytes(t *testing.T, data []byte) *Reader {
	t.Helper()
	r, err := OpenReader(bytes.NewReader(data), int64(len(data)), WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	return r
}

func TestTextJoinsSectionsInOrder(t *testing.T) {
	// Stored out of order to make sure the reader sorts.
	data := testutil.BuildZip([]testutil.ZipEntry{
		{Name: "mimetype", Body: "application/hwp+zip"},
		{Name: "Contents/section1.xml", Body: testutil.SectionXML("B")},
		{Name: "Contents/section0.xml", Body: testutil.SectionXML("A")},
	})

	got, err := openBytes(t, data).Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "A\nB" {
		t.Errorf("Text() = %q, want %q", got, "A\nB")
	}
}

func TestSectionsSortNumerically(t *testing.T) {
	data := testutil.BuildZip([]testutil.ZipEntry{
		{Name: "Contents/section10.xml", Body: testutil.SectionXML("ten")},
		{Name: "Contents/section2.xml", Body: testutil.SectionXML("two")},
		{Name: "Contents/sectionX.xml", Body: testutil.SectionXML("other")},
		{Name: "Contents/header.xml", Body: testutil.SectionXML("ignored")},
	})

	r := openBytes(t, data)
	want := []string{"Contents/section2.xml", "Contents/section10.xml", "Contents/sectionX.xml"}
	if got := r.SectionNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("SectionNames() = %v, want %v", got, want)
	}

	got, err := r.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "two\nten\nother" {
		t.Errorf("Text() = %q", got)
	}
}

func TestTextFallbackWithoutNamespace(t *testing.T) {
	data := testutil.BuildHWPX(`<sec><p><run><t>첫 줄</t></run></p><p><t></t><t>둘째 줄</t></p></sec>`)

	got, err := openBytes(t, data).Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "첫 줄\n둘째 줄" {
		t.Errorf("Text() = %q", got)
	}
}

func TestTextIgnoresOtherNamespaces(t *testing.T) {
	// hp:t is present, so t elements in other vocabularies are not collected.
	body := `<hs:sec xmlns:hs="urn:section" xmlns:hp="` + ParagraphNS + `" xmlns:x="urn:other">` +
		`<hp:p><hp:run><hp:t>본문</hp:t></hp:run></hp:p><x:t>noise</x:t></hs:sec>`

	got, err := openBytes(t, testutil.BuildHWPX(body)).Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "본문" {
		t.Errorf("Text() = %q, want %q", got, "본문")
	}
}

func TestTextSkipsMalformedSection(t *testing.T) {
	data := testutil.BuildHWPX(
		testutil.SectionXML("first"),
		`<hs:sec><hp:p><hp:t>broken`,
		testutil.SectionXML("third", "fourth"),
	)

	got, err := openBytes(t, data).Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "first\nthird\nfourth" {
		t.Errorf("Text() = %q", got)
	}
}

func TestTextEmptyDocument(t *testing.T) {
	got, err := openBytes(t, testutil.BuildHWPX(testutil.SectionXML())).Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "" {
		t.Errorf("Text() = %q, want empty", got)
	}
}

func TestVersionAndMimetype(t *testing.T) {
	data := testutil.BuildZip([]testutil.ZipEntry{
		{Name: "mimetype", Body: "application/zip"},
		{Name: "version.xml", Body: `<?xml version="1.0"?><hv:HCFVersion xmlns:hv="http://www.hancom.co.kr/hwpml/2011/version" tagetApplication="WORDPROCESSOR" major="5" minor="1" micro="0" buildNumber="1" xmlVersion="1.4"/>`},
		{Name: "Contents/section0.xml", Body: testutil.SectionXML("text")},
	})

	r := openBytes(t, data)
	want := Version{Major: 5, Minor: 1, Micro: 0, BuildNumber: 1, XMLVersion: "1.4"}
	if got := r.Version(); got != want {
		t.Errorf("Version() = %+v, want %+v", got, want)
	}
	if got, _ := r.Text(); got != "text" {
		t.Errorf("a mimetype mismatch must not stop extraction, got %q", got)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "plain.hwpx")
	if err := os.WriteFile(notZip, []byte("this is not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(notZip); !errors.Is(err, ErrNotZip) {
		t.Errorf("expected ErrNotZip, got %v", err)
	}

	_, err := Open(filepath.Join(dir, "missing.hwpx"))
	if err == nil || errors.Is(err, ErrNotZip) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error distinct from ErrNotZip, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "doc.hwpx", testutil.BuildHWPX(testutil.SectionXML("x")))

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
