//go:build linux
// +build linux

package socket

import (
	"io"
	"net"
	"os"
	"syscall"
)

// SendFile transmits a file over conn with the sendfile(2) syscall, avoiding
// the userspace copy io.Copy would do. Used by the static file service for
// every GET/HEAD/Range response. Falls back to io.Copy when conn is not a
// *net.TCPConn or the syscall itself fails partway through.
func SendFile(conn net.Conn, file *os.File, offset int64, count int64) (written int64, err error) {
	// Try to use sendfile for zero-copy transfer
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		// Not a TCP connection, fall back to io.Copy
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	// Get raw connection file descriptor
	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	// Get file descriptor for source file
	srcFd := int(file.Fd())

	// sendfile(2) transfer
	var totalWritten int64
	var sendfileErr error

	ctrlErr := rawConn.Write(func(dstFd uintptr) bool {
		// Linux sendfile: sendfile(out_fd, in_fd, &offset, count)
		// Returns number of bytes written
		// Updates offset automatically

		currentOffset := offset
		remaining := count

		for remaining > 0 {
			// sendfile can transfer up to 2GB at a time
			// For larger transfers, we need multiple calls
			chunkSize := remaining
			if chunkSize > 1<<30 { // 1GB chunks
				chunkSize = 1 << 30
			}

			n, err := syscall.Sendfile(int(dstFd), srcFd, &currentOffset, int(chunkSize))
			if err != nil {
				// Check if it's a temporary error
				if err == syscall.EAGAIN || err == syscall.EINTR {
					// Retry
					continue
				}

				// sendfile failed, we'll fall back to io.Copy
				sendfileErr = err
				return false // Stop control function
			}

			if n == 0 {
				// EOF or error
				break
			}

			totalWritten += int64(n)
			remaining -= int64(n)

			// currentOffset is updated automatically by sendfile
		}

		return true
	})

	if ctrlErr != nil {
		// Fall back to io.Copy
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	if sendfileErr != nil {
		// sendfile failed, fall back to io.Copy
		// But we might have already written some data
		if totalWritten > 0 {
			// Partial sendfile succeeded
			// Continue with io.Copy for the rest
			remaining := count - totalWritten
			if remaining > 0 {
				n, err := io.Copy(conn, io.NewSectionReader(file, offset+totalWritten, remaining))
				totalWritten += n
				if err != nil {
					return totalWritten, err
				}
			}
			return totalWritten, nil
		}

		// No data written via sendfile, use io.Copy
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	return totalWritten, nil
}

// SendFileAll sends an entire file using sendfile.
// This is a convenience wrapper around SendFile for the common case.
func SendFileAll(conn net.Conn, file *os.File) (written int64, err error) {
	stat, err := file.Stat()
	if err != nil {
		return 0, err
	}

	return SendFile(conn, file, 0, stat.Size())
}

// SendFileRange sends a range of a file using sendfile.
// This is useful for implementing HTTP Range requests efficiently.
func SendFileRange(conn net.Conn, file *os.File, start, end int64) (written int64, err error) {
	if end < start {
		return 0, io.EOF
	}

	count := end - start + 1
	return SendFile(conn, file, start, count)
}

// CanUseSendFile checks if sendfile is likely to work for this connection.
// Returns true for TCP connections, false otherwise.
func CanUseSendFile(conn net.Conn) bool {
	_, ok := conn.(*net.TCPConn)
	return ok
}
