package session

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/fakeyudi/annotate/internal/geometry"
	"github.com/fakeyudi/annotate/internal/record"
)

// verdict is the outcome of validating one raw detection entry: either a
// detection or the reason it was rejected. hasID tells whether id is usable
// for reporting.
type verdict struct {
	det    *record.Detection
	id     int
	hasID  bool
	reason Reason
}

func (v verdict) ok() bool { return v.reason == ReasonNone }

// validateEntry checks, in order: object shape, integer id, four numeric bbox
// values, numeric score, and coordinate ordering.
func validateEntry(raw json.RawMessage) verdict {
	var fields map[string]json.RawMessage
	if err := decodeStrict(raw, &fields); err != nil || fields == nil {
		return verdict{reason: ReasonNotObject}
	}

	id, ok := parseInt(fields[record.KeyID])
	if !ok {
		return verdict{reason: ReasonMissingID}
	}

	bbox, ok := parseBBox(fields[record.KeyBBox])
	if !ok {
		return verdict{id: id, hasID: true, reason: ReasonMalformedBBox}
	}

	score, ok := parseFloat(fields[record.KeyScore])
	if !ok {
		return verdict{id: id, hasID: true, reason: ReasonMalformedScore}
	}

	if !bbox.Ordered() {
		return verdict{id: id, hasID: true, reason: ReasonDegenerate}
	}

	extra := map[string]json.RawMessage{}
	for k, v := range fields {
		switch k {
		case record.KeyID, record.KeyBBox, record.KeyScore:
		default:
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}

	return verdict{
		det:   &record.Detection{ID: id, BBox: bbox, Score: score, Extra: extra},
		id:    id,
		hasID: true,
	}
}

// decodeStrict decodes a single JSON value, keeping numbers as json.Number
// and rejecting trailing data.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

func number(raw json.RawMessage) (json.Number, bool) {
	if raw == nil {
		return "", false
	}
	var v any
	if err := decodeStrict(raw, &v); err != nil {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok
}

// parseInt accepts only integral JSON numbers written without a fraction or
// exponent.
func parseInt(raw json.RawMessage) (int, bool) {
	n, ok := number(raw)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(n.String(), 10, strconv.IntSize)
	if err != nil {
		return 0, false
	}
	return int(i), true
}

func parseFloat(raw json.RawMessage) (float64, bool) {
	n, ok := number(raw)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseBBox(raw json.RawMessage) (geometry.BBox, bool) {
	if raw == nil {
		return geometry.BBox{}, false
	}
	var items []json.RawMessage
	if err := decodeStrict(raw, &items); err != nil || len(items) != 4 {
		return geometry.BBox{}, false
	}
	var a [4]float64
	for i, item := range items {
		f, ok := parseFloat(item)
		if !ok {
			return geometry.BBox{}, false
		}
		a[i] = f
	}
	return geometry.FromArray(a), true
}
