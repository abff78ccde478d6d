// dispatch.go implements spec.md §4.K's per-request pipeline: RBAC -> WAF
// -> router -> static-file service or metrics endpoint, plus the GET/HEAD
// static-file semantics of §4.N (canonicalization, ETag, Range, gzip,
// zero-copy transmit).
package engine

import (
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/http1"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/httperr"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/locale"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/static"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/waf"
)

// metricsPath is the fixed Prometheus exposition endpoint of spec.md §6,
// registered into cfg.Router by DefaultConfig under the destStatic/
// destMetrics convention below.
const metricsPath = "/metrics"

// Router destinations: the router (spec.md §4.J) maps a path to one of
// these strings; anything it does not match falls back to destStatic, the
// static-file service's implicit catch-all.
const (
	destStatic  = "static"
	destMetrics = "metrics"
	destEdge    = "edge"
)

// edgePathPrefix is prepended to every loaded WASM edge function's name to
// form its router path, e.g. a module named "greet.wasm" answers "/edge/greet".
const edgePathPrefix = "/edge/"

// dispatch runs one request through RBAC, the WAF, the router, and finally
// either the static-file service or the metrics endpoint.
func (c *connection) dispatch(req *http1.Request, rw *http1.ResponseWriter) {
	method := req.Method()
	path := req.Path()

	if !c.cfg.RBAC.Allow(path, req.GetHeaderString("Authorization")) {
		c.writeStatus(rw, httperr.WafBlock("rbac: role not permitted"))
		return
	}

	if !waf.Check(method, path, collectHeaders(req)) {
		c.writeStatus(rw, httperr.WafBlock("waf: request blocked"))
		return
	}

	dest, _, ok := c.cfg.Router.Find(path)
	if !ok {
		dest = destStatic
	}

	switch dest {
	case destMetrics:
		c.serveMetrics(method, rw)
	case destEdge:
		c.serveEdge(strings.TrimPrefix(path, edgePathPrefix), method, rw)
	default:
		if method != http1MethodGET && method != http1MethodHEAD {
			c.writeStatus(rw, httperr.MethodNotAllowed())
			return
		}
		c.serveStatic(req, rw, method == http1MethodHEAD)
	}
}

const (
	http1MethodGET  = "GET"
	http1MethodHEAD = "HEAD"
)

// collectHeaders flattens req's headers into the [][2]string shape
// pkg/selenia/waf.Check expects.
func collectHeaders(req *http1.Request) [][2]string {
	var out [][2]string
	req.Header.VisitAll(func(name, value []byte) bool {
		out = append(out, [2]string{string(name), string(value)})
		return true
	})
	return out
}

func (c *connection) serveMetrics(method string, rw *http1.ResponseWriter) {
	if method != http1MethodGET {
		c.writeStatus(rw, httperr.MethodNotAllowed())
		return
	}
	body, err := c.cfg.Metrics.Render()
	if err != nil {
		c.writeStatus(rw, httperr.Internal(err.Error()))
		return
	}
	data := []byte(body)
	rw.Header().Set([]byte("Content-Length"), []byte(strconv.Itoa(len(data))))
	rw.Header().Set([]byte("Content-Type"), []byte("text/plain; version=0.0.4"))
	rw.Header().Set([]byte("Connection"), []byte("keep-alive"))
	rw.WriteHeader(200)
	rw.Write(data)
}

// serveEdge runs the named WASM edge function (see pkg/selenia/wasmedge)
// and reports its i32 result, the edge-function supplement's one
// observable HTTP effect: the interpreted module never touches the
// connection directly.
func (c *connection) serveEdge(name, method string, rw *http1.ResponseWriter) {
	if method != http1MethodGET && method != http1MethodHEAD {
		c.writeStatus(rw, httperr.MethodNotAllowed())
		return
	}
	result, ok, err := c.cfg.Edge.Invoke(name, 0)
	if !ok {
		c.writeStatus(rw, httperr.NoMatch())
		return
	}
	if err != nil {
		c.writeStatus(rw, httperr.Internal(err.Error()))
		return
	}
	body := strconv.FormatInt(int64(result), 10)
	rw.Header().Set([]byte("Content-Type"), []byte("text/plain; charset=utf-8"))
	rw.Header().Set([]byte("Content-Length"), []byte(strconv.Itoa(len(body))))
	rw.Header().Set([]byte("Connection"), []byte("keep-alive"))
	rw.WriteHeader(200)
	if method != http1MethodHEAD {
		rw.Write([]byte(body))
	}
}

// serveStatic implements spec.md §4.K's GET/HEAD dispatch: path
// canonicalization, weak ETag / If-None-Match, Range, gzip negotiation,
// and zero-copy transmit.
func (c *connection) serveStatic(req *http1.Request, rw *http1.ResponseWriter, headOnly bool) {
	f, err := static.Open(c.cfg.RootDir, req.Path())
	if err != nil {
		c.writeStatus(rw, httperr.NoMatch())
		return
	}
	defer f.Close()

	rw.Header().Set([]byte("ETag"), []byte(f.ETag))
	rw.Header().Set([]byte("Connection"), []byte("keep-alive"))

	if inm := req.GetHeaderString("If-None-Match"); static.IfNoneMatchSatisfied(inm, f.ETag) {
		rw.Header().Set([]byte("Content-Length"), []byte("0"))
		rw.WriteHeader(304)
		return
	}

	size := f.Info.Size()
	rangeHeader := req.GetHeaderString("Range")
	if rng, ok := static.ParseRange(rangeHeader, size); ok {
		c.serveRange(rw, f, rng, size, headOnly)
		return
	}

	c.serveFull(req, rw, f, size, headOnly)
}

func (c *connection) serveRange(rw *http1.ResponseWriter, f *static.File, rng static.Range, size int64, headOnly bool) {
	rw.Header().Set([]byte("Content-Type"), []byte(f.MIME))
	rw.Header().Set([]byte("Content-Range"), []byte("bytes "+strconv.FormatInt(rng.Start, 10)+"-"+strconv.FormatInt(rng.End, 10)+"/"+strconv.FormatInt(size, 10)))
	rw.Header().Set([]byte("Content-Length"), []byte(strconv.FormatInt(rng.Len(), 10)))
	rw.WriteHeader(206)
	if headOnly {
		return
	}
	rw.Flush()
	static.WriteRange(c.conn, f, rng)
}

func (c *connection) serveFull(req *http1.Request, rw *http1.ResponseWriter, f *static.File, size int64, headOnly bool) {
	rw.Header().Set([]byte("Content-Type"), []byte(f.MIME))

	if static.ShouldCompress(f.MIME) && acceptsGzip(req.GetHeaderString("Accept-Encoding")) {
		raw := bytebufferpool.Get()
		defer bytebufferpool.Put(raw)
		if int64(cap(raw.B)) < size {
			raw.B = make([]byte, size)
		}
		raw.B = raw.B[:size]
		n, _ := f.Handle.ReadAt(raw.B, 0)
		encoded, err := static.GzipEncode(raw.B[:n])
		if err == nil {
			rw.Header().Set([]byte("Content-Encoding"), []byte("gzip"))
			rw.Header().Set([]byte("Content-Length"), []byte(strconv.Itoa(len(encoded))))
			rw.WriteHeader(200)
			if !headOnly {
				rw.Write(encoded)
			}
			return
		}
	}

	rw.Header().Set([]byte("Content-Length"), []byte(strconv.FormatInt(size, 10)))
	rw.WriteHeader(200)
	if headOnly {
		return
	}
	rw.Flush()
	static.WriteAll(c.conn, f)
}

// acceptsGzip reports whether header lists "gzip" with a nonzero q-value,
// per spec.md §4.K.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		fields := strings.SplitN(part, ";", 2)
		name := strings.TrimSpace(fields[0])
		if !strings.EqualFold(name, "gzip") {
			continue
		}
		if len(fields) == 1 {
			return true
		}
		q := strings.TrimSpace(fields[1])
		if strings.HasPrefix(q, "q=") {
			v, err := strconv.ParseFloat(strings.TrimPrefix(q, "q="), 64)
			if err == nil && v <= 0 {
				continue
			}
		}
		return true
	}
	return false
}

// localizedBody renders the plain-text body for an error status via
// pkg/selenia/locale, falling back to a bare status line when the code has
// no registered message key.
func localizedBody(loc string, code int) string {
	if loc == "" {
		loc = "en"
	}
	key, ok := statusLocaleKey(code)
	if !ok {
		return strconv.Itoa(code) + " " + httpStatusText(code)
	}
	return locale.Translate(loc, key)
}

func statusLocaleKey(code int) (string, bool) {
	switch code {
	case 400:
		return "http.bad_request", true
	case 403:
		return "http.waf_blocked", true
	case 404:
		return "http.not_found", true
	case 405:
		return "http.method_not_allowed", true
	case 429:
		return "http.rate_limited", true
	case 500:
		return "http.internal_error", true
	case 504:
		return "http.upstream_timeout", true
	default:
		return "", false
	}
}

func httpStatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 206:
		return "Partial Content"
	case 304:
		return "Not Modified"
	default:
		return "Status"
	}
}
