package nrflog

import (
	jpegout "github.com/stronnag/nrf2jpeg/pkg/jpegout"
	types "github.com/stronnag/nrf2jpeg/pkg/types"
)

// ConvertLog extracts every image in logfile and writes it next to
// outbase as <stem>_<n>.jpg. The error is non-nil only when the log could
// not be read or held no hex data; per-image failures are in the results.
func ConvertLog(logfile, outbase string) ([]types.ImageResult, error) {
	imgs, err := Extract(logfile, false)
	if err != nil {
		return nil, err
	}
	return jpegout.WriteImages(imgs, outbase), nil
}
