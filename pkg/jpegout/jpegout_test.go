package jpegout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/stronnag/nrf2jpeg/pkg/types"
)

func TestGenJpegName(t *testing.T) {
	for _, tc := range []struct {
		base string
		idx  int
		want string
	}{
		{"image.jpg", 3, "image_3.jpg"},
		{"photo.jpeg", 1, "photo_1.jpg"},
		{"photo.jpeg", 2, "photo_2.jpg"},
		{"archive.tar.gz", 1, "archive.tar_1.jpg"},
		{"noext", 4, "noext_4.jpg"},
		{"out/cam.d/image", 1, "out/cam.d/image_1.jpg"},
		{"out/cam.d/image.png", 2, "out/cam.d/image_2.jpg"},
		{"Log 2025-05-13 10_13_22.txt", 1, "Log 2025-05-13 10_13_22_1.jpg"},
	} {
		assert.Equal(t, tc.want, GenJpegName(tc.base, tc.idx), "%s/%d", tc.base, tc.idx)
	}
}

func hexImage(idx int, hx string) types.HexImage {
	return types.HexImage{Meta: types.ImageMeta{Logname: "log.txt", Index: idx, HexLen: len(hx)}, Hex: hx}
}

func TestDecode(t *testing.T) {
	data, err := Decode(hexImage(1, "FFD8FFD9"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xd9}, data)
	assert.True(t, HasEOI(data))

	_, err = Decode(hexImage(7, "FFD8F"))
	var de *types.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 7, de.Index)
	assert.Contains(t, err.Error(), "image 7")

	_, err = Decode(hexImage(2, "FFZZ"))
	assert.True(t, errors.As(err, &de))
}

func TestWriteImages(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "image.jpg")
	imgs := []types.HexImage{
		hexImage(1, "FFD8FFD9"),
		hexImage(2, "FFD80"),
		hexImage(3, "FFD80102"),
	}

	results := WriteImages(imgs, base)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK())
	assert.Equal(t, 4, results[0].Size)
	assert.False(t, results[0].NoEOI)
	got, err := os.ReadFile(filepath.Join(dir, "image_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xd9}, got)

	assert.Equal(t, types.Status_DECODE, results[1].Status())
	assert.Zero(t, results[1].Size)

	assert.True(t, results[2].OK())
	assert.True(t, results[2].NoEOI)
	assert.Equal(t, filepath.Join(dir, "image_3.jpg"), results[2].Filename)
}

func TestWriteImagesOverwrites(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "image.jpg")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image_1.jpg"), []byte("a much longer stale file"), 0644))

	results := WriteImages([]types.HexImage{hexImage(1, "FFD8")}, base)
	require.True(t, results[0].OK())
	got, err := os.ReadFile(results[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, got)
}

func TestWriteImagesWriteError(t *testing.T) {
	dir := t.TempDir()
	// image_1.jpg is a directory, so creating the file fails
	require.NoError(t, os.Mkdir(filepath.Join(dir, "image_1.jpg"), 0755))
	base := filepath.Join(dir, "image.jpg")

	results := WriteImages([]types.HexImage{hexImage(1, "FFD8"), hexImage(2, "FFD8FFD9")}, base)
	require.Len(t, results, 2)

	var we *types.WriteError
	require.True(t, errors.As(results[0].Err, &we))
	assert.Equal(t, 1, we.Index)
	assert.Equal(t, filepath.Join(dir, "image_1.jpg"), we.Name)
	assert.Equal(t, types.Status_WRITE, results[0].Status())

	assert.True(t, results[1].OK())
	assert.Equal(t, 4, results[1].Size)
}
