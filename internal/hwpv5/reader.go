package hwpv5

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richardlehane/mscfb"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MaxSections caps how many BodyText/Section<N> names are probed.
const MaxSections = 4096

// maxSectionSize guards against corrupt directory entries declaring absurd sizes.
const maxSectionSize = 1 << 30

var (
	// ErrContainerOpen reports that the input is not a readable compound file.
	ErrContainerOpen = errors.New("not a valid HWP compound file")
	// ErrSectionRead reports that a single section stream could not be read.
	ErrSectionRead = errors.New("section read failed")
)

// SectionError describes one unreadable section. It is recoverable: the
// remaining sections are still enumerated.
type SectionError struct {
	Index int
	Name  string
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Name, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// Is makes every SectionError match ErrSectionRead.
func (e *SectionError) Is(target error) bool { return target == ErrSectionRead }

// Section is the raw content of one body text stream.
type Section struct {
	Index int
	Name  string
	Raw   []byte
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used to report recoverable problems.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.log = logger
		}
	}
}

// Container wraps an open HWP compound file.
type Container struct {
	Header FileHeader

	streams   map[string]*mscfb.File
	storage   string
	hasHeader bool
	closer    io.Closer
	closed    bool
	log       *zap.Logger
}

// Open opens the HWP file at path. The returned Container owns the file handle
// and must be closed.
func Open(path string, opts ...Option) (*Container, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerOpen, err)
	}

	c, err := newContainer(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	c.closer = file
	return c, nil
}

// OpenReader parses a compound file from ra. Closing the Container does not
// close ra.
func OpenReader(ra io.ReaderAt, opts ...Option) (*Container, error) {
	return newContainer(ra, opts)
}

func newContainer(ra io.ReaderAt, opts []Option) (*Container, error) {
	c := &Container{
		streams: make(map[string]*mscfb.File),
		storage: "BodyText",
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerOpen, err)
	}

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.FileInfo().IsDir() {
			continue
		}
		c.streams[streamPath(entry)] = entry
	}

	c.loadHeader()
	return c, nil
}

func streamPath(entry *mscfb.File) string {
	if len(entry.Path) == 0 {
		return entry.Name
	}
	return strings.Join(entry.Path, "/") + "/" + entry.Name
}

// loadHeader reads the FileHeader stream when it is present. Header problems
// are logged and otherwise ignored: the body streams are probed either way.
func (c *Container) loadHeader() {
	entry, ok := c.streams[fileHeaderName]
	if !ok {
		c.log.Debug("FileHeader stream not found")
		return
	}

	raw, err := readStream(entry)
	if err != nil {
		c.log.Warn("failed to read FileHeader", zap.Error(err))
		return
	}
	hdr, err := parseFileHeader(raw)
	if err != nil {
		c.log.Warn("failed to parse FileHeader", zap.Error(err))
		return
	}

	c.Header = hdr
	c.hasHeader = true
	c.log.Debug("file header",
		zap.String("version", hdr.Version.String()),
		zap.Bool("compressed", hdr.Properties.Compressed()),
		zap.Bool("distribution", hdr.Properties.Distribution()))

	if hdr.Properties.Encrypted() {
		c.log.Warn("document is password encrypted; extracted text will be noise")
	}
	if hdr.Properties.Distribution() {
		if _, ok := c.streams["ViewText/Section0"]; ok {
			c.storage = "ViewText"
		}
	}
}

// IsDistributionDoc reports whether sections are read from the encrypted
// ViewText storage.
func (c *Container) IsDistributionDoc() bool {
	return c.storage == "ViewText"
}

// HasHeader reports whether a valid FileHeader stream was found.
func (c *Container) HasHeader() bool {
	return c.hasHeader
}

// Sections reads Section0, Section1, ... in order and stops at the first
// missing index. Unreadable sections are skipped; their errors are combined
// into the returned error while the readable sections are still returned.
func (c *Container) Sections() ([]Section, error) {
	var (
		sections []Section
		errs     error
	)

	for i := 0; i < MaxSections; i++ {
		name := fmt.Sprintf("%s/Section%d", c.storage, i)
		entry, ok := c.streams[name]
		if !ok {
			break
		}

		raw, err := c.readSection(entry)
		if err != nil {
			c.log.Warn("skipping unreadable section", zap.String("section", name), zap.Error(err))
			errs = multierr.Append(errs, &SectionError{Index: i, Name: name, Err: err})
			continue
		}
		sections = append(sections, Section{Index: i, Name: name, Raw: raw})
	}

	c.log.Debug("sections enumerated",
		zap.String("storage", c.storage),
		zap.Int("read", len(sections)),
		zap.Int("failed", len(multierr.Errors(errs))))
	return sections, errs
}

func (c *Container) readSection(entry *mscfb.File) ([]byte, error) {
	raw, err := readStream(entry)
	if err != nil {
		return nil, err
	}
	if c.IsDistributionDoc() {
		return decryptViewText(raw)
	}
	return raw, nil
}

func readStream(entry *mscfb.File) ([]byte, error) {
	if entry.Size <= 0 {
		return []byte{}, nil
	}
	if entry.Size > maxSectionSize {
		return nil, fmt.Errorf("stream size %d exceeds limit", entry.Size)
	}

	buf := make([]byte, entry.Size)
	n, err := entry.ReadAt(buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == entry.Size) {
		return nil, err
	}
	if int64(n) != entry.Size {
		return nil, fmt.Errorf("short read: %d of %d bytes", n, entry.Size)
	}
	return buf, nil
}

// Close releases the underlying file if the Container owns one. It is safe to
// call more than once.
func (c *Container) Close() error {
	if c.closed || c.closer == nil {
		return nil
	}
	c.closed = true
	return c.closer.Close()
}
