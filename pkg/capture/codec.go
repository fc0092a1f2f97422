// bouchon/pkg/capture/codec.go

package capture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
	"bouchon/pkg/scenario"
)

// Capture file layout: line 1 is a JSON object mapping flow id to that
// flow's matcher payload, UTF-8, newline-terminated; the remaining bytes are
// concatenated flow records in the codec's framing. No checksum, no record
// count, no version tag.
//
// The matcher payload written by Dump is the flow's serialized rule set, so
// a dumped scenario carries enough to rebuild its rules on load. The header
// is parsed with a plain JSON decoder; capture files are untrusted input and
// never get evaluated.

// Dump writes the scenario's matcher header and flow records to w, flows in
// the scenario's capture order.
func Dump(w io.Writer, s *scenario.Scenario, codec Codec) error {
	header := make(map[string]map[string][]scenario.Fields)
	for id, rs := range s.Rules() {
		header[id] = rs.ToMap()
	}
	line, err := json.Marshal(header)
	if err != nil {
		return codecError("failed to encode matcher header", err)
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return codecError("failed to write matcher header", err)
	}
	for _, f := range s.Flows() {
		if err := codec.Encode(w, f); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces dst's contents with the capture read from r. The header is
// validated before anything is touched; a malformed header fails the whole
// import. After that point the import is best-effort: each decoded flow is
// enqueued for asynchronous ingestion in decode order, and a mid-stream
// codec error abandons the rest of the stream without rolling back flows
// already enqueued.
func Load(r io.Reader, dst *scenario.Scenario, view *flow.View, codec Codec, ing *Ingestor) error {
	br := bufio.NewReader(r)
	line, err := br.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return logging.NewError(logging.ErrorTypeCaptureFormat, "failed to read matcher header", err, nil)
	}

	var matchers map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(line), &matchers); err != nil {
		return logging.NewError(logging.ErrorTypeCaptureFormat, "malformed matcher header", err, nil)
	}

	// Destructive replace: the destination's flows leave the live view and
	// its containers start empty before anything streams in.
	view.Remove(dst.Flows()...)
	dst.Reset()

	rules := make(map[string]*scenario.RuleSet, len(matchers))
	for id, payload := range matchers {
		view.RegisterMatcher(id, payload)
		var m map[string][]scenario.Fields
		if err := json.Unmarshal(payload, &m); err == nil {
			rules[id] = scenario.RuleSetFromMap(m)
		}
	}

	reader := codec.NewReader(br)
	count := 0
	for {
		f, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logging.Logger.Warn().Int("ingested", count).Msg("Capture stream aborted mid-record")
			return err
		}
		dst.AddFlow(f)
		if rs, ok := rules[f.ID]; ok {
			dst.SetRules(f.ID, rs)
		}
		ing.Enqueue(f)
		count++
	}
	logging.Logger.Info().Str("scenario", dst.Name).Int("flows", count).
		Int("matchers", len(matchers)).Msg("Capture loaded")
	return nil
}
