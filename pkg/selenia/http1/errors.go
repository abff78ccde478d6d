package http1

import "github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/httperr"

// Parser errors are httperr.Status values rather than opaque sentinels, so a
// parse failure carries the status code and log level connection.go needs to
// answer the peer with instead of just dropping the socket.
var (
	ErrInvalidRequestLine = httperr.MalformedHeader("invalid request line")
	ErrInvalidMethod      = httperr.MalformedHeader("invalid or unsupported method")
	ErrInvalidPath        = httperr.MalformedHeader("invalid request path")
	// ErrInvalidProtocol covers both unparsable and (once HTTP/2 grows its
	// own live path) out-of-scope protocol strings on this parser.
	ErrInvalidProtocol  = httperr.New(505, httperr.LevelWarn, "unsupported protocol version")
	ErrInvalidHeader    = httperr.MalformedHeader("invalid header line")
	ErrHeaderTooLarge   = httperr.New(431, httperr.LevelWarn, "header name or value too large")
	ErrTooManyHeaders   = httperr.New(431, httperr.LevelWarn, "too many headers")
	ErrRequestLineTooLarge = httperr.New(414, httperr.LevelWarn, "request line too large")
	ErrHeadersTooLarge     = httperr.New(431, httperr.LevelWarn, "headers too large")
	ErrChunkedEncoding     = httperr.MalformedHeader("chunked encoding error")
	ErrInvalidContentLength = httperr.MalformedHeader("invalid Content-Length")

	// RFC 7230 §3.3.3 request-smuggling guards: a request carrying both
	// framing headers, or contradictory duplicate Content-Length values,
	// must be rejected outright rather than guessed at.
	ErrContentLengthWithTransferEncoding = httperr.New(400, httperr.LevelWarn, "both Content-Length and Transfer-Encoding present")
	ErrDuplicateContentLength            = httperr.New(400, httperr.LevelWarn, "conflicting duplicate Content-Length headers")

	ErrURITooLong    = httperr.New(414, httperr.LevelWarn, "request URI too long")
	ErrUnexpectedEOF = httperr.New(400, httperr.LevelInfo, "connection closed mid-request")
	ErrBufferTooSmall = httperr.Internal("buffer too small")
)

// Connection-lifecycle errors. Code 0 marks them as not peer-answerable —
// connection.go closes the socket without attempting a status write.
var (
	ErrConnectionClosed    = httperr.New(0, httperr.LevelInfo, "connection closed")
	ErrTimeout             = httperr.New(408, httperr.LevelInfo, "read timeout")
	ErrMaxRequestsExceeded = httperr.New(0, httperr.LevelInfo, "max requests per connection exceeded")
)

// Response-writer misuse errors; these indicate a caller bug, not a peer
// fault, so they stay LevelError.
var (
	ErrHeadersAlreadyWritten = httperr.Internal("headers already written")
	ErrInvalidStatusCode     = httperr.Internal("invalid status code")
)
