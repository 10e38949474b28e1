package compress

import (
	"bytes"
	"io/ioutil"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// NewFlateCompressor creates a deflate compressor
func NewFlateCompressor() Compressor {
	fc := &flateCompressor{}
	var err error
	fc.writer, err = flate.NewWriter(ioutil.Discard, flate.BestSpeed)
	if err != nil {
		panic(err)
	}
	return fc
}

type flateCompressor struct {
	writer *flate.Writer
}

func (fc *flateCompressor) Compress(b []byte) ([]byte, error) {
	var wb bytes.Buffer
	fc.writer.Reset(&wb)
	n, err := fc.writer.Write(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, errNotFullyCompressed
	}

	if err := fc.writer.Close(); err != nil {
		return nil, err
	}
	return wb.Bytes(), nil
}

func (fc *flateCompressor) Decompress(c []byte) ([]byte, error) {
	reader := flate.NewReader(bytes.NewReader(c))
	defer reader.Close()
	b, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "flate decompress")
	}
	return b, nil
}
