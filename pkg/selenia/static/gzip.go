// gzip.go implements the gzip Content-Encoding spec.md §4.N's dispatch layer
// applies to compressible static responses, restricted to Huffman-only
// DEFLATE (no LZ77 matching; each block is stored or carries its own
// Huffman table), matching the Non-goal that excludes on-the-fly
// Brotli/Zstd compression.
//
// Grounded on original_source/selenia_http/src/compress.rs's gzip container
// construction, reimplemented over github.com/klauspost/compress/flate for
// the DEFLATE body instead of hand-rolled bit packing.
package static

import (
	"bytes"
	"hash/crc32"

	"github.com/klauspost/compress/flate"
)

const (
	gzipMagic0 = 0x1f
	gzipMagic1 = 0x8b
	gzipMethod = 0x08 // deflate
)

// GzipEncode wraps data in a minimal gzip container whose DEFLATE payload
// uses klauspost/compress/flate at HuffmanOnly (Huffman coding of literals,
// no LZ77 backreference search) — cheap enough to run per-request for small static
// assets without a dedicated compression worker pool.
func GzipEncode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Write([]byte{
		gzipMagic0, gzipMagic1,
		gzipMethod,
		0x00,             // flags
		0, 0, 0, 0,       // mtime
		0x00,             // extra flags
		0xff,             // OS unknown
	})

	fw, err := flate.NewWriter(&out, flate.HuffmanOnly)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	crc := crc32.ChecksumIEEE(data)
	isize := uint32(len(data))
	out.Write([]byte{
		byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24),
		byte(isize), byte(isize >> 8), byte(isize >> 16), byte(isize >> 24),
	})
	return out.Bytes(), nil
}

// ShouldCompress reports whether mime is a textual type worth gzipping; per
// spec.md §4.N's fixed MIME table, binary image formats are skipped.
func ShouldCompress(mime string) bool {
	switch {
	case hasPrefix(mime, "text/"):
		return true
	case hasPrefix(mime, "application/javascript"):
		return true
	default:
		return false
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
