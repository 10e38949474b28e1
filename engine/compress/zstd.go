package compress

import (
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// NewZstdCompressor creates a zstd compressor
func NewZstdCompressor() Compressor {
	zc := &zstdCompressor{}
	var err error
	if zc.encoder, err = zstd.NewWriter(nil); err != nil {
		panic(err)
	}
	if zc.decoder, err = zstd.NewReader(nil); err != nil {
		panic(err)
	}
	return zc
}

type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (zc *zstdCompressor) Compress(b []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(b, nil), nil
}

func (zc *zstdCompressor) Decompress(c []byte) ([]byte, error) {
	b, err := zc.decoder.DecodeAll(c, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decompress")
	}
	return b, nil
}
