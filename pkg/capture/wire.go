// bouchon/pkg/capture/wire.go

package capture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
)

// Codec turns single flows into byte records and back. The capture format
// carries no record count; readers rely entirely on the codec's framing to
// find record boundaries.
type Codec interface {
	Encode(w io.Writer, f *flow.Flow) error
	NewReader(r io.Reader) Reader
}

// Reader yields decoded flows until io.EOF. The sequence is finite and not
// restartable.
type Reader interface {
	Next() (*flow.Flow, error)
}

// maxRecordSize bounds a single record so a corrupt length prefix cannot
// drive an allocation of arbitrary size.
const maxRecordSize = 512 << 20

// JSONCodec frames JSON-encoded flows as netstrings: "<len>:<payload>,".
type JSONCodec struct{}

func (JSONCodec) Encode(w io.Writer, f *flow.Flow) error {
	data, err := json.Marshal(f)
	if err != nil {
		return codecError("failed to encode flow", err)
	}
	if _, err := fmt.Fprintf(w, "%d:", len(data)); err != nil {
		return codecError("failed to write record", err)
	}
	if _, err := w.Write(data); err != nil {
		return codecError("failed to write record", err)
	}
	if _, err := w.Write([]byte{','}); err != nil {
		return codecError("failed to write record", err)
	}
	return nil
}

func (JSONCodec) NewReader(r io.Reader) Reader {
	return &jsonReader{r: bufio.NewReader(r)}
}

type jsonReader struct {
	r *bufio.Reader
}

func (jr *jsonReader) Next() (*flow.Flow, error) {
	size := 0
	digits := 0
	for {
		b, err := jr.r.ReadByte()
		if err == io.EOF {
			if digits == 0 {
				return nil, io.EOF
			}
			return nil, codecError("truncated record length", nil)
		}
		if err != nil {
			return nil, codecError("failed to read record length", err)
		}
		if b == ':' {
			if digits == 0 {
				return nil, codecError("empty record length", nil)
			}
			break
		}
		if b < '0' || b > '9' {
			return nil, codecError(fmt.Sprintf("invalid byte %q in record length", b), nil)
		}
		size = size*10 + int(b-'0')
		digits++
		if size > maxRecordSize {
			return nil, codecError("record length exceeds limit", nil)
		}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(jr.r, payload); err != nil {
		return nil, codecError("truncated record payload", err)
	}
	term, err := jr.r.ReadByte()
	if err != nil || term != ',' {
		return nil, codecError("missing record terminator", err)
	}

	var f flow.Flow
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, codecError("failed to decode flow", err)
	}
	return &f, nil
}

func codecError(msg string, err error) error {
	return logging.NewError(logging.ErrorTypeCodec, msg, err, nil)
}
