// Package static implements spec.md §4.N's static-file service: path
// canonicalization under a vhost root, extension-based MIME guessing, Range
// parsing, weak ETag computation, If-None-Match handling, and zero-copy
// transmit via pkg/selenia/socket.
//
// Grounded on original_source/selenia_http/src/zerocopy.rs for the transmit
// path and original_source/selenia_server/src/main.rs's request-dispatch
// static-file branch for the canonicalization/Range/ETag behavior.
package static

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/httperr"
)

// ErrOutsideRoot is returned by Resolve when the requested path escapes the
// vhost root after canonicalization (".." traversal, symlink escape, etc).
var ErrOutsideRoot = errors.New("static: path escapes root")

// mimeTable is the small fixed extension table spec.md §4.N names
// explicitly; anything else falls back to application/octet-stream.
var mimeTable = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
}

// GuessMIME returns the MIME type for name based on its extension.
func GuessMIME(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := mimeTable[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Resolve canonicalizes reqPath against root and rejects any result that
// escapes root, mirroring "path must canonicalize within the vhost root."
func Resolve(root, reqPath string) (string, error) {
	cleanRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	cleanRoot, err = filepath.EvalSymlinks(cleanRoot)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(cleanRoot, filepath.FromSlash(reqPath))
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}

	// EvalSymlinks requires the target to exist; fall back to the
	// directory for not-yet-resolved leaf components.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		resolved = abs
	}

	rel, err := filepath.Rel(cleanRoot, resolved)
	if err != nil {
		return "", ErrOutsideRoot
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return resolved, nil
}

// ETag computes a weak ETag from the file's size and modification time,
// avoiding a full content hash for every request while still changing
// whenever the file's observable metadata changes.
func ETag(info os.FileInfo) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%d", info.Size(), info.ModTime().UnixNano())
	return `W/"` + hex.EncodeToString(h.Sum(nil))[:16] + `"`
}

// Range is an inclusive byte range, start/end both valid indices into a file
// of the size passed to ParseRange.
type Range struct {
	Start, End int64
}

// Len returns the number of bytes the range covers.
func (r Range) Len() int64 { return r.End - r.Start + 1 }

// ParseRange parses a "bytes=start-end" header value against a file of the
// given size. Per spec.md §4.N, an inverted or out-of-range request is not
// an error: ok=false tells the caller to fall through to a full 200
// response instead of failing the request.
func ParseRange(header string, size int64) (Range, bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return Range{}, false
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		// Multi-range requests are not supported; fall through to 200.
		return Range{}, false
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return Range{}, false
	}

	var start, end int64
	var err error
	switch {
	case parts[0] == "" && parts[1] != "":
		// Suffix range: last N bytes.
		n, e := strconv.ParseInt(parts[1], 10, 64)
		if e != nil || n <= 0 {
			return Range{}, false
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	case parts[0] != "" && parts[1] == "":
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return Range{}, false
		}
		end = size - 1
	case parts[0] != "" && parts[1] != "":
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return Range{}, false
		}
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Range{}, false
		}
	default:
		return Range{}, false
	}

	if start < 0 || end < start || start >= size {
		return Range{}, false
	}
	if end >= size {
		end = size - 1
	}
	return Range{Start: start, End: end}, true
}

// IfNoneMatchSatisfied reports whether the If-None-Match header value
// matches etag (including the "*" wildcard), meaning the server should
// respond 304 instead of re-sending the body.
func IfNoneMatchSatisfied(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

// File is an opened, stat'd file ready for serving.
type File struct {
	Handle *os.File
	Info   os.FileInfo
	MIME   string
	ETag   string
}

// Open resolves reqPath under root and opens it, returning httperr.NoMatch
// for anything that doesn't resolve to a regular file.
func Open(root, reqPath string) (*File, error) {
	resolved, err := Resolve(root, reqPath)
	if err != nil {
		return nil, httperr.NoMatch()
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, httperr.NoMatch()
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, httperr.NoMatch()
	}
	return &File{
		Handle: f,
		Info:   info,
		MIME:   GuessMIME(resolved),
		ETag:   ETag(info),
	}, nil
}

// Close releases the underlying file handle.
func (f *File) Close() error { return f.Handle.Close() }
