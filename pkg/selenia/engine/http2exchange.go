// http2exchange.go drives the single-stream request/response exchange this
// engine supports over HTTP/2: read frames until one full HEADERS block
// arrives, answer through the same RBAC/WAF/static decision points the
// HTTP/1 path uses, and reply with HEADERS+DATA before GOAWAY.
//
// This intentionally does not implement RFC 7540 in full -- no concurrent
// streams, no persistent connection reuse across exchanges. Those are the
// same simplifications spec.md's TLS and HTTP/2 branches already make
// (serveTLSHandshake in connection.go): one flight, then close. What it does exercise for
// real: frame parsing/serialization (frame.go), HPACK encode/decode
// (pkg/selenia/hpack), flow-control admission and the weighted priority
// scheduler (pkg/selenia/http2's FlowController/PriorityTree/Scheduler), and
// CONTINUATION reassembly for header blocks split across frames.
package engine

import (
	"strconv"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/hpack"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/http2"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/httperr"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/static"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/waf"
)

// maxHTTP2FramesBeforeHeaders bounds how many non-HEADERS frames (SETTINGS,
// WINDOW_UPDATE, PRIORITY, PING, CONTINUATION) this engine tolerates before
// giving up on a client that never completes its request headers.
const maxHTTP2FramesBeforeHeaders = 32

// http2Exchange carries the per-connection state a single HTTP/2 flight
// needs beyond what fits as parameters: the priority tree every PRIORITY
// frame and every HEADERS priority field updates, the scheduler that gates
// DATA admission on both flow control and weighted share, and the
// PRIORITY-frame rate limiter guarding against priority-update floods.
type http2Exchange struct {
	fc        *http2.FlowController
	tree      *http2.PriorityTree
	scheduler *http2.Scheduler
	limiter   *http2.PriorityRateLimiter
}

// serveHTTP2Preface implements spec.md §4.K/§4.G's HTTP/2 branch: after the
// connection preface, read frames until a request's HEADERS block is
// decodable, run it through the request pipeline, and reply before closing.
func (c *connection) serveHTTP2Preface() {
	c.br.Discard(len(http2.ClientPreface))
	c.touch()

	dec := hpack.NewDecoder(4096, 16384)
	ex := &http2Exchange{
		fc:      http2.NewFlowController(),
		tree:    http2.NewPriorityTree(),
		limiter: http2.NewPriorityRateLimiterFromConfig(http2.DefaultConnectionConfig()),
	}
	ex.scheduler = http2.NewScheduler(ex.tree, ex.fc)

	hf, err := c.readHTTP2Headers(ex)
	if err != nil {
		c.writeHTTP2GoAway(http2.ErrCodeProtocol)
		return
	}

	fields, err := dec.Decode(hf.HeaderBlock)
	if err != nil {
		c.writeHTTP2GoAway(http2.ErrCodeCompression)
		return
	}

	stream := http2.NewStream(hf.StreamID, ex.fc.InitialWindowSize())
	if hf.HasPriority() {
		ex.tree.Add(hf.StreamID, hf.StreamDependency, uint16(hf.Weight)+1, hf.Exclusive)
		if err := stream.SetPriority(hf.Weight, hf.StreamDependency, hf.Exclusive); err != nil {
			c.writeHTTP2GoAway(http2.ErrCodeProtocol)
			return
		}
	} else {
		ex.tree.Add(hf.StreamID, http2.ConnectionStreamID, 0, false)
	}
	ex.scheduler.Register(hf.StreamID, stream)

	method, path := pseudoHeaders(fields)
	status, body, contentType := c.resolveHTTP2Request(method, path, fields)

	c.writeHTTP2Response(ex, stream, hf.StreamID, status, contentType, body)
	c.writeHTTP2GoAway(http2.ErrCodeNo)
}

// readHTTP2Headers processes connection-level frames (SETTINGS, WINDOW_UPDATE,
// PRIORITY, PING, RST_STREAM, GOAWAY) as they arrive, applying each to ex,
// until it finds a HEADERS frame and reassembles any CONTINUATION frames
// that follow it into one complete header block.
func (c *connection) readHTTP2Headers(ex *http2Exchange) (*http2.HeadersFrame, error) {
	for i := 0; i < maxHTTP2FramesBeforeHeaders; i++ {
		fh, payload, err := c.readHTTP2Frame()
		if err != nil {
			return nil, err
		}
		if err := fh.Validate(); err != nil {
			return nil, err
		}

		switch fh.Type {
		case http2.FrameSettings:
			if err := c.applyHTTP2Settings(ex, fh, payload); err != nil {
				return nil, err
			}
		case http2.FrameWindowUpdate:
			if err := c.applyHTTP2WindowUpdate(ex, fh, payload); err != nil {
				return nil, err
			}
		case http2.FramePriority:
			if err := c.applyHTTP2Priority(ex, fh, payload); err != nil {
				return nil, err
			}
		case http2.FramePing:
			if err := c.applyHTTP2Ping(fh, payload); err != nil {
				return nil, err
			}
		case http2.FrameRSTStream:
			if _, err := http2.ParseRSTStreamFrame(fh, payload); err != nil {
				return nil, err
			}
			// The peer is tearing down before sending a request; nothing
			// left to answer, regardless of the error code it gave.
			return nil, http2.ErrStreamClosed
		case http2.FrameGoAway:
			if _, err := http2.ParseGoAwayFrame(fh, payload); err != nil {
				return nil, err
			}
			return nil, http2.ErrStreamClosed
		case http2.FrameData:
			// A DATA frame arriving before HEADERS has nowhere registered
			// to land; account only its actual data (not padding) against
			// the connection window.
			df, err := http2.ParseDataFrame(fh, payload)
			if err != nil {
				return nil, err
			}
			if err := ex.fc.ConsumeConnectionRecvWindow(int32(len(df.Data))); err != nil {
				return nil, err
			}
		case http2.FrameHeaders:
			hf, err := http2.ParseHeadersFrame(fh, payload)
			if err != nil {
				return nil, err
			}
			if !hf.EndHeaders() {
				if err := c.reassembleHTTP2Continuation(hf); err != nil {
					return nil, err
				}
			}
			return hf, nil
		default:
			// PUSH_PROMISE was already rejected by fh.Validate(); unknown
			// frame types pass Validate and are ignored here per
			// RFC 7540 §4.1.
		}
	}
	return nil, http2.ErrInvalidPadding
}

// readHTTP2Frame reads one frame header and its payload off the wire.
func (c *connection) readHTTP2Frame() (http2.FrameHeader, []byte, error) {
	var raw [http2.FrameHeaderLen]byte
	if _, err := readFull(c.br, raw[:]); err != nil {
		return http2.FrameHeader{}, nil, err
	}
	fh := http2.ParseFrameHeader(raw)
	payload := make([]byte, fh.Length)
	if fh.Length > 0 {
		if _, err := readFull(c.br, payload); err != nil {
			return http2.FrameHeader{}, nil, err
		}
	}
	return fh, payload, nil
}

// reassembleHTTP2Continuation appends CONTINUATION frames onto hf's header
// block until END_HEADERS is set, per RFC 7540 §6.10.
func (c *connection) reassembleHTTP2Continuation(hf *http2.HeadersFrame) error {
	for !hf.EndHeaders() {
		fh, payload, err := c.readHTTP2Frame()
		if err != nil {
			return err
		}
		if fh.Type != http2.FrameContinuation || fh.StreamID != hf.StreamID {
			return http2.ErrInvalidStreamID
		}
		cf, err := http2.ParseContinuationFrame(fh, payload)
		if err != nil {
			return err
		}
		hf.HeaderBlock = append(hf.HeaderBlock, cf.HeaderBlock...)
		if cf.EndHeaders() {
			hf.Flags |= http2.FlagHeadersEndHeaders
		}
	}
	return nil
}

// applyHTTP2Settings parses an incoming SETTINGS frame and applies the
// initial-window-size and max-frame-size parameters to ex's flow controller,
// then acknowledges it as RFC 7540 §6.5.3 requires.
func (c *connection) applyHTTP2Settings(ex *http2Exchange, fh http2.FrameHeader, payload []byte) error {
	sf, err := http2.ParseSettingsFrame(fh, payload)
	if err != nil {
		return err
	}
	if !sf.IsAck() {
		for _, setting := range sf.Settings {
			switch setting.ID {
			case http2.SettingInitialWindowSize:
				if err := ex.fc.SetInitialWindowSize(int32(setting.Value)); err != nil {
					return err
				}
			case http2.SettingMaxFrameSize:
				if err := ex.fc.SetMaxFrameSize(setting.Value); err != nil {
					return err
				}
			}
		}
		var out []byte
		out = appendFrame(out, http2.FrameHeader{Type: http2.FrameSettings, Flags: http2.FlagSettingsAck}, nil)
		c.conn.Write(out)
	}
	return nil
}

// applyHTTP2WindowUpdate parses a WINDOW_UPDATE frame and increments the
// connection window when StreamID is 0. An update for any other stream is
// parsed and not applied: this runs only while the request's HEADERS are
// still being read, before the stream and its window are created.
func (c *connection) applyHTTP2WindowUpdate(ex *http2Exchange, fh http2.FrameHeader, payload []byte) error {
	wuf, err := http2.ParseWindowUpdateFrame(fh, payload)
	if err != nil {
		return err
	}
	if wuf.StreamID == http2.ConnectionStreamID {
		return ex.fc.IncrementConnectionSendWindow(int32(wuf.WindowSizeIncrement))
	}
	return nil
}

// applyHTTP2Priority parses a PRIORITY frame and updates the priority tree,
// subject to the rate limiter rejecting a flood of reprioritizations.
func (c *connection) applyHTTP2Priority(ex *http2Exchange, fh http2.FrameHeader, payload []byte) error {
	if !ex.limiter.Allow() {
		return http2.ErrRateLimitExceeded
	}
	pf, err := http2.ParsePriorityFrame(fh, payload)
	if err != nil {
		return err
	}
	return ex.tree.Reprioritize(fh.StreamID, pf.StreamDependency, uint16(pf.Weight)+1, pf.Exclusive)
}

// applyHTTP2Ping replies to a non-ACK PING frame with the same opaque data,
// per RFC 7540 §6.7.
func (c *connection) applyHTTP2Ping(fh http2.FrameHeader, payload []byte) error {
	pf, err := http2.ParsePingFrame(fh, payload)
	if err != nil {
		return err
	}
	if pf.IsAck() {
		return nil
	}
	var out []byte
	out = appendFrame(out, http2.FrameHeader{Type: http2.FramePing, Flags: http2.FlagPingAck}, pf.Data[:])
	c.conn.Write(out)
	return nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func pseudoHeaders(fields []hpack.HeaderField) (method, path string) {
	for _, f := range fields {
		switch f.Name {
		case ":method":
			method = f.Value
		case ":path":
			path = f.Value
		}
	}
	return method, path
}

// resolveHTTP2Request mirrors dispatch's RBAC -> WAF -> static decision
// chain for the one HTTP/2 stream this exchange answers. Static responses
// are read in full rather than sendfile'd, since static.WriteAll/WriteRange
// write raw bytes straight to the socket and would corrupt DATA framing;
// that tradeoff is scoped to this single-exchange path, not the HTTP/1 one.
func (c *connection) resolveHTTP2Request(method, path string, fields []hpack.HeaderField) (status int, body []byte, contentType string) {
	var authorization string
	var headerPairs [][2]string
	for _, f := range fields {
		if f.Name == "authorization" {
			authorization = f.Value
		}
		if len(f.Name) > 0 && f.Name[0] != ':' {
			headerPairs = append(headerPairs, [2]string{f.Name, f.Value})
		}
	}

	if !c.cfg.RBAC.Allow(path, authorization) {
		return 403, []byte("forbidden"), "text/plain; charset=utf-8"
	}
	if !waf.Check(method, path, headerPairs) {
		return 403, []byte("blocked"), "text/plain; charset=utf-8"
	}
	if method != "GET" && method != "HEAD" {
		return 405, nil, "text/plain; charset=utf-8"
	}

	dest, _, ok := c.cfg.Router.Find(path)
	if ok && dest == destMetrics {
		rendered, err := c.cfg.Metrics.Render()
		if err != nil {
			return 500, []byte(err.Error()), "text/plain; charset=utf-8"
		}
		return 200, []byte(rendered), "text/plain; version=0.0.4"
	}

	f, err := static.Open(c.cfg.RootDir, path)
	if err != nil {
		return httperr.NoMatch().Code, []byte("not found"), "text/plain; charset=utf-8"
	}
	defer f.Close()

	size := f.Info.Size()
	buf := make([]byte, size)
	n, _ := f.Handle.ReadAt(buf, 0)
	return 200, buf[:n], f.MIME
}

// writeHTTP2Response HPACK-encodes the :status/content-type/content-length
// pseudo- and regular-header set, frames it as HEADERS, and frames body as
// one or more DATA frames sized by FlowController.ChunkData. Each chunk is
// queued on the priority tree and only written once Scheduler.NextStream
// admits it, so a single-stream flight exercises the same admission path a
// multiplexed connection would use.
func (c *connection) writeHTTP2Response(ex *http2Exchange, stream *http2.Stream, streamID uint32, status int, contentType string, body []byte) {
	enc := hpack.NewEncoder(4096)
	headerBlock := enc.Encode([]hpack.HeaderField{
		{Name: ":status", Value: strconv.Itoa(status)},
		{Name: "content-type", Value: contentType},
		{Name: "content-length", Value: strconv.Itoa(len(body))},
	})

	var out []byte
	endStream := len(body) == 0
	headersFlags := http2.FlagHeadersEndHeaders
	if endStream {
		headersFlags |= http2.FlagHeadersEndStream
	}
	out = appendFrame(out, http2.FrameHeader{Type: http2.FrameHeaders, Flags: headersFlags, StreamID: streamID}, headerBlock)

	chunks := ex.fc.ChunkData(body, stream)
	for _, chunk := range chunks {
		ex.scheduler.QueueData(streamID, len(chunk))
	}
	for len(chunks) > 0 {
		chunk := chunks[0]
		id, ok := ex.scheduler.NextStream(int32(len(chunk)))
		if !ok || id != streamID {
			break
		}
		chunks = chunks[1:]
		out = appendFrame(out, http2.FrameHeader{Type: http2.FrameData, StreamID: streamID}, chunk)
	}
	if len(body) > 0 {
		out = appendFrame(out, http2.FrameHeader{Type: http2.FrameData, Flags: http2.FlagDataEndStream, StreamID: streamID}, nil)
	}
	c.conn.Write(out)
}

func (c *connection) writeHTTP2GoAway(code http2.ErrorCode) {
	var out []byte
	goAway := make([]byte, 8)
	goAway[4] = byte(code >> 24)
	goAway[5] = byte(code >> 16)
	goAway[6] = byte(code >> 8)
	goAway[7] = byte(code)
	out = appendFrame(out, http2.FrameHeader{Type: http2.FrameGoAway}, goAway)
	c.conn.Write(out)
}
