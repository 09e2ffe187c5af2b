package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// member is one key/value pair of a JSON object written in a fixed order.
type member struct {
	key   string
	value any
}

// Encode serializes r deterministically: fixed keys first in schema order,
// passthrough keys after them in sorted order, two-space indentation and a
// trailing newline. Identical records always produce identical bytes.
func (r *Record) Encode() ([]byte, error) {
	dets := make([]json.RawMessage, 0, len(r.Detections))
	for _, d := range r.Detections {
		raw, err := d.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encoding detection %d: %w", d.ID, err)
		}
		dets = append(dets, raw)
	}

	members := []member{
		{KeyFormatVersion, r.FormatVersion},
		{KeyImage, r.Image},
		{KeyDetections, dets},
	}
	members = appendExtra(members, r.Extra, KeyFormatVersion, KeyImage, KeyDetections)

	compact, err := encodeObject(members)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indenting record: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// MarshalJSON writes id, bbox and score first, then passthrough keys sorted.
func (d *Detection) MarshalJSON() ([]byte, error) {
	members := []member{
		{KeyID, d.ID},
		{KeyBBox, d.BBox.Array()},
		{KeyScore, d.Score},
	}
	members = appendExtra(members, d.Extra, KeyID, KeyBBox, KeyScore)
	return encodeObject(members)
}

func appendExtra(members []member, extra map[string]json.RawMessage, reserved ...string) []member {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if slices.Contains(reserved, k) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		members = append(members, member{k, extra[k]})
	}
	return members
}

func encodeObject(members []member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshal(m.key)
		if err != nil {
			return nil, err
		}
		val, err := marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", m.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshal is json.Marshal without HTML escaping, so non-ASCII and markup
// characters in passthrough values are written as-is.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
