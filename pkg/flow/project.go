// bouchon/pkg/flow/project.go

package flow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// Project reduces a flow to its transport-safe form: certificate material and
// raw TLS extension bytes are dropped, ALPN bytes are decoded to text, and
// message bodies are replaced by a (length, sha256) pair. Pure, no side
// effects; this is the only shape that leaves the process on the API.
func Project(f *Flow) map[string]interface{} {
	out := map[string]interface{}{
		"id":          f.ID,
		"type":        f.Type,
		"intercepted": f.Intercepted,
		"modified":    f.Modified(),
		"marked":      f.Marked,
		"client_conn": projectConn(f.ClientConn),
		"server_conn": projectConn(f.ServerConn),
	}
	if f.Error != "" {
		out["error"] = f.Error
	}
	if f.Request != nil {
		r := f.Request
		length, hash := contentSummary(r.Content)
		out["request"] = map[string]interface{}{
			"method":          r.Method,
			"scheme":          r.Scheme,
			"host":            r.Host,
			"port":            r.Port,
			"path":            r.Path,
			"http_version":    r.HTTPVersion,
			"headers":         headerPairs(r.Headers),
			"contentLength":   length,
			"contentHash":     hash,
			"timestamp_start": r.TimestampStart,
			"timestamp_end":   r.TimestampEnd,
			"is_replay":       r.IsReplay,
		}
	}
	if f.Response != nil {
		r := f.Response
		length, hash := contentSummary(r.Content)
		out["response"] = map[string]interface{}{
			"http_version":    r.HTTPVersion,
			"status_code":     r.StatusCode,
			"reason":          r.Reason,
			"headers":         headerPairs(r.Headers),
			"contentLength":   length,
			"contentHash":     hash,
			"timestamp_start": r.TimestampStart,
			"timestamp_end":   r.TimestampEnd,
			"is_replay":       r.IsReplay,
		}
	}
	return out
}

func projectConn(c ConnState) map[string]interface{} {
	m := map[string]interface{}{
		"id":              c.ID,
		"address":         c.Address,
		"tls_established": c.TLSEstablished,
	}
	if c.TLSVersion != "" {
		m["tls_version"] = c.TLSVersion
	}
	if c.SNI != "" {
		m["sni"] = c.SNI
	}
	if c.ALPN != nil {
		m["alpn_proto_negotiated"] = DecodeALPN(c.ALPN)
	}
	if c.TimestampStart != 0 {
		m["timestamp_start"] = c.TimestampStart
	}
	if c.TimestampEnd != 0 {
		m["timestamp_end"] = c.TimestampEnd
	}
	// Cert and TLSExtensions stay out on purpose.
	return m
}

func contentSummary(content []byte) (interface{}, interface{}) {
	if len(content) == 0 {
		return nil, nil
	}
	sum := sha256.Sum256(content)
	return len(content), hex.EncodeToString(sum[:])
}

func headerPairs(headers [][2]string) [][2]string {
	if headers == nil {
		return [][2]string{}
	}
	return headers
}

// DecodeALPN turns negotiated-protocol bytes into text. Bytes that do not
// form valid UTF-8 are escaped as \xNN instead of being dropped.
func DecodeALPN(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, fmt.Sprintf("\\x%02x", b[i])...)
			i++
			continue
		}
		out = append(out, b[i:i+size]...)
		i += size
	}
	return string(out)
}
