package hwpx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"
)

const (
	mimetypeName     = "mimetype"
	expectedMimetype = "application/hwp+zip"
	versionName      = "version.xml"

	sectionPrefix = "Contents/section"
	sectionSuffix = ".xml"
)

// ErrNotZip reports that the input could not be opened as a zip archive.
var ErrNotZip = errors.New("not a valid HWPX (ZIP) file")

// Version represents the HWPX format version
type Version struct {
	Major       int
	Minor       int
	Micro       int
	BuildNumber int
	XMLVersion  string
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Micro, v.BuildNumber)
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used to report skipped entries and metadata.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.log = logger
		}
	}
}

// Reader provides access to HWPX document content
type Reader struct {
	zipReader *zip.Reader
	version   Version
	sections  []*zip.File
	closer    io.Closer
	closed    bool
	log       *zap.Logger
}

// Open opens the HWPX file at path. The returned Reader owns the file handle
// and must be closed. A file that exists but is not a zip archive yields
// ErrNotZip; other filesystem errors are returned as they are.
func Open(path string, opts ...Option) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	r, err := OpenReader(file, info.Size(), opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// OpenReader opens an HWPX document from ra. Closing the Reader does not
// close ra.
func OpenReader(ra io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	zipReader, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotZip, err)
	}

	r := &Reader{
		zipReader: zipReader,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.checkMimetype()
	r.parseVersion()
	r.loadSections()
	return r, nil
}

// checkMimetype logs a missing or unexpected mimetype entry. Neither stops
// extraction: the section entries are what matter.
func (r *Reader) checkMimetype() {
	data, err := r.readEntry(mimetypeName)
	if err != nil {
		r.log.Debug("mimetype entry unavailable", zap.Error(err))
		return
	}
	if mimetype := strings.TrimSpace(string(data)); mimetype != expectedMimetype {
		r.log.Warn("unexpected mimetype", zap.String("mimetype", mimetype))
	}
}

func (r *Reader) parseVersion() {
	file, err := r.zipReader.Open(versionName)
	if err != nil {
		r.log.Debug("version.xml unavailable", zap.Error(err))
		return
	}
	defer file.Close()

	doc, err := xmlquery.Parse(file)
	if err != nil {
		r.log.Warn("failed to parse version.xml", zap.Error(err))
		return
	}
	root := xmlquery.FindOne(doc, "//*[local-name()='HCFVersion']")
	if root == nil {
		r.log.Warn("version.xml has no HCFVersion element")
		return
	}

	attr := func(name string) int {
		n, _ := strconv.Atoi(root.SelectAttr(name))
		return n
	}
	r.version = Version{
		Major:       attr("major"),
		Minor:       attr("minor"),
		Micro:       attr("micro"),
		BuildNumber: attr("buildNumber"),
		XMLVersion:  root.SelectAttr("xmlVersion"),
	}
	r.log.Debug("hwpx version", zap.String("version", r.version.String()))
}

// loadSections collects Contents/section*.xml entries ordered by their
// numeric index; names without a numeric index sort after, lexicographically.
func (r *Reader) loadSections() {
	for _, file := range r.zipReader.File {
		if strings.HasPrefix(file.Name, sectionPrefix) && strings.HasSuffix(file.Name, sectionSuffix) {
			r.sections = append(r.sections, file)
		}
	}

	sort.SliceStable(r.sections, func(i, j int) bool {
		a, b := r.sections[i].Name, r.sections[j].Name
		ai, aok := sectionIndex(a)
		bi, bok := sectionIndex(b)
		switch {
		case aok && bok && ai != bi:
			return ai < bi
		case aok != bok:
			return aok
		}
		return a < b
	})
}

func sectionIndex(name string) (int, bool) {
	s := strings.TrimSuffix(strings.TrimPrefix(name, sectionPrefix), sectionSuffix)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (r *Reader) readEntry(name string) ([]byte, error) {
	file, err := r.zipReader.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// Version returns the version declared in version.xml, or the zero Version.
func (r *Reader) Version() Version {
	return r.version
}

// SectionNames lists the section entries in reading order.
func (r *Reader) SectionNames() []string {
	names := make([]string, len(r.sections))
	for i, f := range r.sections {
		names[i] = f.Name
	}
	return names
}

// Close releases the underlying file if the Reader owns one. It is safe to
// call more than once.
func (r *Reader) Close() error {
	if r.closed || r.closer == nil {
		return nil
	}
	r.closed = true
	return r.closer.Close()
}
