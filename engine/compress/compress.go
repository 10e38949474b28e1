package compress

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/gwlog"
)

// Compressor compresses and decompresses whole buffers
type Compressor interface {
	Compress(b []byte) ([]byte, error)
	Decompress(c []byte) ([]byte, error)
}

var (
	errNotFullyCompressed = errors.Errorf("not fully compressed")
)

// NewCompressor creates the compressor of a format: zstd, snappy or flate
func NewCompressor(compressFormat string) Compressor {
	compressFormat = strings.ToLower(compressFormat)
	if compressFormat == "zstd" {
		return NewZstdCompressor()
	} else if compressFormat == "snappy" {
		return NewSnappyCompressor()
	} else if compressFormat == "flate" {
		return NewFlateCompressor()
	} else {
		gwlog.Panicf("unknown compress format: %s", compressFormat)
		return nil
	}
}

var fileExtFormats = map[string]string{
	".zst":     "zstd",
	".sz":      "snappy",
	".deflate": "flate",
}

// ForFile returns the compressor for a file name by its extension and the name without that extension
//
// Files without a known compressed extension return a nil Compressor and the name unchanged.
func ForFile(name string) (Compressor, string) {
	lname := strings.ToLower(name)
	for ext, format := range fileExtFormats {
		if strings.HasSuffix(lname, ext) {
			return NewCompressor(format), name[:len(name)-len(ext)]
		}
	}
	return nil, name
}
