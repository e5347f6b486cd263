package jpegout

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"

	types "github.com/stronnag/nrf2jpeg/pkg/types"
)

var eoi = []byte{0xff, 0xd9}

// GenJpegName drops the final extension of base and appends _idx.jpg, so
// image.jpg, 3 => image_3.jpg. A dot in a directory name is not an extension.
func GenJpegName(base string, idx int) string {
	stem := base
	if n := strings.LastIndex(base, "."); n != -1 && n > strings.LastIndexAny(base, `/\`) {
		stem = base[:n]
	}
	return fmt.Sprintf("%s_%d.jpg", stem, idx)
}

// Decode converts a finalized buffer to raw bytes.
func Decode(im types.HexImage) ([]byte, error) {
	data, err := hex.DecodeString(im.Hex)
	if err != nil {
		return nil, &types.DecodeError{Index: im.Meta.Index, Err: err}
	}
	return data, nil
}

func HasEOI(data []byte) bool {
	return bytes.HasSuffix(data, eoi)
}

func writeFile(fname string, data []byte) error {
	fh, err := os.Create(fname)
	if err != nil {
		return err
	}
	_, err = fh.Write(data)
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteImage decodes and writes one image. The returned result always
// carries the index and target file name.
func WriteImage(im types.HexImage, base string) types.ImageResult {
	res := types.ImageResult{Index: im.Meta.Index, Filename: GenJpegName(base, im.Meta.Index)}
	data, err := Decode(im)
	if err != nil {
		res.Err = err
		return res
	}
	res.NoEOI = !HasEOI(data)
	if err = writeFile(res.Filename, data); err != nil {
		res.Err = &types.WriteError{Index: res.Index, Name: res.Filename, Err: err}
		return res
	}
	res.Size = len(data)
	res.Data = data
	return res
}

// WriteImages writes every image in order. A failed image never stops the
// ones after it.
func WriteImages(imgs []types.HexImage, base string) []types.ImageResult {
	results := make([]types.ImageResult, 0, len(imgs))
	for _, im := range imgs {
		r := WriteImage(im, base)
		if r.Err != nil {
			glog.Warningf("%s: %v\n", im.Meta.LogName(), r.Err)
		}
		results = append(results, r)
	}
	return results
}
