package nrflog

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	types "github.com/stronnag/nrf2jpeg/pkg/types"
)

// nRF Connect logs notifications as
//   ... value: (0x) FF-D8-FF-E0-00-10-...
var (
	hexPattern     = regexp.MustCompile(`value: \(0x\) ([\dA-F\-]+)`)
	hexPatternFold = regexp.MustCompile(`value: \(0x\) ([\dA-Fa-f\-]+)`)
)

// A 240 byte notification is 719 characters of hex and hyphens, leave
// plenty of room for longer MTUs.
const maxLine = 1024 * 1024

type NRFLOG struct {
	name   string
	fold   bool
	images []types.HexImage
}

func NewNRFReader(fn string, fold bool) NRFLOG {
	var l NRFLOG
	l.name = fn
	l.fold = fold
	l.images = nil
	return l
}

func (o *NRFLOG) LogType() byte {
	return types.LOGNRF
}

// GetMetas scans the log once and caches the finalized buffers.
func (o *NRFLOG) GetMetas() ([]types.ImageMeta, error) {
	imgs, err := Extract(o.name, o.fold)
	o.images = imgs
	var metas []types.ImageMeta
	for _, im := range imgs {
		metas = append(metas, im.Meta)
	}
	return metas, err
}

// Images returns the buffers found by GetMetas, filtered to idx (0 = all).
func (o *NRFLOG) Images(idx int) ([]types.HexImage, error) {
	if idx == 0 {
		return o.images, nil
	}
	for _, im := range o.images {
		if im.Meta.Index == idx {
			return []types.HexImage{im}, nil
		}
	}
	return nil, errors.Wrapf(types.ErrNoImage, "%d (log has %d)", idx, len(o.images))
}

// Extract opens logfile and returns its finalized image buffers.
func Extract(logfile string, fold bool) ([]types.HexImage, error) {
	fh, err := os.Open(logfile)
	if err != nil {
		return nil, errors.Wrapf(types.ErrNotFound, "'%s' (%v)", logfile, err)
	}
	defer fh.Close()
	return Scan(fh, filepath.Base(logfile), fold)
}

type accumulator struct {
	logname string
	sb      strings.Builder
	meta    types.ImageMeta
	images  []types.HexImage
}

func (a *accumulator) flush() {
	if a.sb.Len() == 0 {
		return
	}
	a.meta.Logname = a.logname
	a.meta.Index = len(a.images) + 1
	a.meta.HexLen = a.sb.Len()
	a.images = append(a.images, types.HexImage{Meta: a.meta, Hex: a.sb.String()})
	glog.V(1).Infof("%s: image %d, lines %d-%d, %d fragments, %d hex digits\n",
		a.logname, a.meta.Index, a.meta.Start, a.meta.End, a.meta.Fragments, a.meta.HexLen)
	a.sb.Reset()
	a.meta = types.ImageMeta{}
}

func (a *accumulator) add(frag string, lineno int) {
	if strings.HasPrefix(frag, types.SOI_HEX) && a.sb.Len() > 0 {
		a.flush()
	}
	if a.sb.Len() == 0 {
		a.meta.Start = lineno
	}
	a.sb.WriteString(frag)
	a.meta.End = lineno
	a.meta.Fragments++
}

// Fragment returns the hyphen-free hex run on line, if any.
func Fragment(line string, fold bool) (string, bool) {
	pat := hexPattern
	if fold {
		pat = hexPatternFold
	}
	m := pat.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	frag := strings.ReplaceAll(m[1], "-", "")
	if fold {
		frag = strings.ToUpper(frag)
	}
	return frag, true
}

// scanLines ends a line at \n, \r\n or a bare \r.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data) || atEOF:
			return i + 1, data[:i], nil
		}
		// \r at the end of the buffer, need the next byte
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Scan makes a single forward pass over r. A fragment starting with the
// start-of-image marker closes the current buffer only if it holds data.
func Scan(r io.Reader, logname string, fold bool) ([]types.HexImage, error) {
	acc := accumulator{logname: logname}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	scanner.Split(scanLines)
	i := 0
	for scanner.Scan() {
		i += 1
		if !utf8.Valid(scanner.Bytes()) {
			return nil, errors.Wrapf(types.ErrRead, "'%s' line %d (invalid UTF-8)", logname, i)
		}
		frag, ok := Fragment(scanner.Text(), fold)
		if !ok || frag == "" {
			continue
		}
		glog.V(2).Infof("%s:%d: %d hex digits\n", logname, i, len(frag))
		acc.add(frag, i)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(types.ErrRead, "'%s' line %d (%v)", logname, i+1, err)
	}
	acc.flush()
	if len(acc.images) == 0 {
		return nil, errors.Wrapf(types.ErrNoData, "'%s'", logname)
	}
	return acc.images, nil
}
