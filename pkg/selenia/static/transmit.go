package static

import (
	"net"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/socket"
)

// WriteRange transmits [r.Start, r.End] of f to conn using the platform
// zero-copy primitive, falling back to a buffered copy when unavailable
// (pkg/selenia/socket handles that fallback internally).
func WriteRange(conn net.Conn, f *File, r Range) (int64, error) {
	return socket.SendFile(conn, f.Handle, r.Start, r.Len())
}

// WriteAll transmits the whole file to conn.
func WriteAll(conn net.Conn, f *File) (int64, error) {
	return socket.SendFileAll(conn, f.Handle)
}
