// bouchon/pkg/flow/flow.go

package flow

import (
	"reflect"

	"github.com/google/uuid"
)

// ConnState carries the connection metadata recorded for one side of an
// intercepted exchange. Cert and TLSExtensions hold secret material and are
// stripped by Project before anything leaves the process.
type ConnState struct {
	ID             string  `json:"id"`
	Address        string  `json:"address,omitempty"`
	TLSEstablished bool    `json:"tls_established"`
	TLSVersion     string  `json:"tls_version,omitempty"`
	SNI            string  `json:"sni,omitempty"`
	ALPN           []byte  `json:"alpn_proto_negotiated,omitempty"`
	Cert           string  `json:"cert,omitempty"`
	TLSExtensions  []byte  `json:"tls_extensions,omitempty"`
	TimestampStart float64 `json:"timestamp_start,omitempty"`
	TimestampEnd   float64 `json:"timestamp_end,omitempty"`
}

// Request is the request half of a captured exchange. Headers keep their
// wire order, so they are pairs rather than a map.
type Request struct {
	Method         string      `json:"method"`
	Scheme         string      `json:"scheme"`
	Host           string      `json:"host"`
	Port           int         `json:"port"`
	Path           string      `json:"path"`
	HTTPVersion    string      `json:"http_version"`
	Headers        [][2]string `json:"headers"`
	Content        []byte      `json:"content,omitempty"`
	TimestampStart float64     `json:"timestamp_start,omitempty"`
	TimestampEnd   float64     `json:"timestamp_end,omitempty"`
	IsReplay       bool        `json:"is_replay,omitempty"`
}

// Response is the response half of a captured exchange.
type Response struct {
	HTTPVersion    string      `json:"http_version"`
	StatusCode     int         `json:"status_code"`
	Reason         string      `json:"reason"`
	Headers        [][2]string `json:"headers"`
	Content        []byte      `json:"content,omitempty"`
	TimestampStart float64     `json:"timestamp_start,omitempty"`
	TimestampEnd   float64     `json:"timestamp_end,omitempty"`
	IsReplay       bool        `json:"is_replay,omitempty"`
}

// Flow is one captured HTTP exchange. The core never constructs flows on the
// wire path; the interception engine hands them over and the core keeps
// references.
type Flow struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ClientConn  ConnState `json:"client_conn"`
	ServerConn  ConnState `json:"server_conn"`
	Request     *Request  `json:"request,omitempty"`
	Response    *Response `json:"response,omitempty"`
	Error       string    `json:"error,omitempty"`
	Intercepted bool      `json:"intercepted"`
	Marked      bool      `json:"marked"`

	killed bool
	backup *snapshot
}

// snapshot holds the mutable parts of a flow for Revert.
type snapshot struct {
	request  *Request
	response *Response
	marked   bool
}

// New returns an empty HTTP flow with a fresh id.
func New() *Flow {
	return &Flow{
		ID:         uuid.NewString(),
		Type:       "http",
		ClientConn: ConnState{ID: uuid.NewString()},
		ServerConn: ConnState{ID: uuid.NewString()},
	}
}

func cloneRequest(r *Request) *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.Headers = append([][2]string(nil), r.Headers...)
	c.Content = append([]byte(nil), r.Content...)
	return &c
}

func cloneResponse(r *Response) *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Headers = append([][2]string(nil), r.Headers...)
	c.Content = append([]byte(nil), r.Content...)
	return &c
}

// Backup snapshots the mutable state so a later Revert can undo edits.
// A second Backup before Revert is a no-op; the oldest snapshot wins.
func (f *Flow) Backup() {
	if f.backup != nil {
		return
	}
	f.backup = &snapshot{
		request:  cloneRequest(f.Request),
		response: cloneResponse(f.Response),
		marked:   f.Marked,
	}
}

// Revert restores the last Backup, if any, and clears the modified state.
func (f *Flow) Revert() {
	if f.backup == nil {
		return
	}
	f.Request = f.backup.request
	f.Response = f.backup.response
	f.Marked = f.backup.marked
	f.backup = nil
}

// Modified reports whether the flow diverged from its last Backup.
func (f *Flow) Modified() bool {
	if f.backup == nil {
		return false
	}
	return !reflect.DeepEqual(f.backup.request, f.Request) ||
		!reflect.DeepEqual(f.backup.response, f.Response) ||
		f.backup.marked != f.Marked
}

// Killable reports whether Kill would do anything: the flow must still be
// held by the interception engine and not already killed.
func (f *Flow) Killable() bool {
	return f.Intercepted && !f.killed
}

// Kill aborts the intercepted exchange.
func (f *Flow) Kill() {
	if !f.Killable() {
		return
	}
	f.killed = true
	f.Intercepted = false
	f.Error = "connection killed"
}

// Resume releases an intercepted flow back to the engine.
func (f *Flow) Resume() {
	f.Intercepted = false
}

// Copy returns a deep copy with a fresh flow id, for flow duplication.
func (f *Flow) Copy() *Flow {
	c := *f
	c.ID = uuid.NewString()
	c.Request = cloneRequest(f.Request)
	c.Response = cloneResponse(f.Response)
	c.backup = nil
	return &c
}
