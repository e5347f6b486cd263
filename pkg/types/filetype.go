package types

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	IS_UNKNOWN = -1
	IS_BINARY  = 0
	IS_TEXT    = 1
	IS_NRF     = 2
)

// EvinceFileType peeks at the head of fn. Binary files are rejected before
// any scanning; any text file is a candidate log.
func EvinceFileType(fn string) (int, error) {
	res := IS_UNKNOWN
	file, err := os.Open(fn)
	if err != nil {
		return res, errors.Wrapf(ErrNotFound, "'%s' (%v)", fn, err)
	}
	defer file.Close()
	fh := bufio.NewReader(file)
	sig, err := fh.Peek(512) //read a few bytes without consuming
	if err != nil && err != io.EOF {
		return res, errors.Wrapf(ErrRead, "'%s' (%v)", fn, err)
	}
	switch {
	case bytes.IndexByte(sig, 0) != -1:
		res = IS_BINARY
	case bytes.Contains(sig, []byte("nRF Connect")):
		res = IS_NRF
	default:
		res = IS_TEXT
	}
	return res, nil
}

func IsTextType(ftype int) bool {
	return ftype == IS_TEXT || ftype == IS_NRF
}

func FileTypeName(ftype int) string {
	switch ftype {
	case IS_NRF:
		return "nRF Connect"
	case IS_TEXT:
		return "text"
	case IS_BINARY:
		return "binary"
	}
	return "unknown"
}
