package types

import (
	"fmt"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const LOGNRF = 'N'

// JPEG start of image, as it appears in the hex stream
const SOI_HEX = "FFD8"

var (
	ErrNotFound = errors.New("log file not found")
	ErrRead     = errors.New("log file read error")
	ErrNoData   = errors.New("no hexadecimal data found in the log file")
	ErrNotText  = errors.New("not a text log")
	ErrNoImage  = errors.New("no such image index")
)

// DecodeError reports malformed hex for one finalized image.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid hex data for image %d - %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError reports a failure to create or write one output file.
type WriteError struct {
	Index int
	Name  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write image %d to '%s' - %v", e.Index, e.Name, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

func IsNoData(err error) bool {
	return errors.Cause(err) == ErrNoData
}

func IsRead(err error) bool {
	return errors.Cause(err) == ErrRead
}

// ImageMeta describes one image as found in the log. Start and End are
// the 1-based line numbers of the first and last contributing lines.
type ImageMeta struct {
	Logname   string
	Index     int
	Start     int
	End       int
	Fragments int
	HexLen    int
}

func (m *ImageMeta) Size() int {
	return m.HexLen / 2
}

func (m *ImageMeta) LogName() string {
	name := m.Logname
	if m.Index > 0 {
		name = name + fmt.Sprintf(" / %d", m.Index)
	}
	return name
}

func (m *ImageMeta) CSV() string {
	return fmt.Sprintf("%d,%s,%d,%d,%d,%d", m.Index, m.Logname, m.Start, m.End, m.Fragments, m.Size())
}

// HexImage is a finalized buffer, still hex encoded.
type HexImage struct {
	Meta ImageMeta
	Hex  string
}

type Status int

const (
	Status_OK Status = iota
	Status_DECODE
	Status_WRITE
	Status_UNKNOWN
)

func (s Status) String() string {
	var names = [...]string{"ok", "decode", "write", "unknown"}
	if s < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

// ImageResult is the outcome for one image. Err is nil on success, else a
// *DecodeError or *WriteError.
type ImageResult struct {
	Index    int
	Filename string
	Size     int
	NoEOI    bool
	Err      error
	Data     []byte
}

func (r *ImageResult) OK() bool {
	return r.Err == nil
}

func (r *ImageResult) Status() Status {
	var de *DecodeError
	var we *WriteError
	switch {
	case r.Err == nil:
		return Status_OK
	case errors.As(r.Err, &de):
		return Status_DECODE
	case errors.As(r.Err, &we):
		return Status_WRITE
	}
	return Status_UNKNOWN
}

func (r *ImageResult) ShowSize() string {
	return fmt.Sprintf("%d bytes (%s)", r.Size, humanize.Bytes(uint64(r.Size)))
}

type MapRec map[string]string

// LogSummary is the per-log report printed ahead of the image list.
type LogSummary struct {
	Logname string
	Format  string
	Date    time.Time
	Images  int
	Bytes   int
}

func (s *LogSummary) Summary() MapRec {
	m := make(MapRec)
	m["Log"] = s.Logname
	if s.Format != "" {
		m["Format"] = s.Format
	}
	m["Images"] = fmt.Sprintf("%d", s.Images)
	if s.Bytes > 0 {
		m["Data"] = humanize.Bytes(uint64(s.Bytes))
	}
	return m
}

// Keys returns the summary keys in display order.
func (m MapRec) Keys() []string {
	var keys []string
	for _, k := range []string{"Log", "Format", "Images", "Data"} {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m MapRec) String() string {
	var sb strings.Builder
	for _, k := range m.Keys() {
		sb.WriteString(fmt.Sprintf("%-8.8s : %s\n", k, m[k]))
	}
	return sb.String()
}
