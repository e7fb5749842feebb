package domain

import (
	"bytes"
	"encoding/json"
)

// marshalJSON is json.Marshal without HTML escaping, so names such as
// "Art & <Design>" reach the file as written.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeObject decodes data into dst and returns the keys it does not model
// along with the tracked keys the object did not carry.
func decodeObject(data []byte, dst any, known, tracked []string) (map[string]json.RawMessage, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, nil, err
	}
	var absent []string
	for _, k := range tracked {
		if _, ok := raw[k]; !ok {
			absent = append(absent, k)
		}
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}
	return raw, absent, nil
}

// encodeObject writes v and merges extra back in. Known keys win over extra
// entries with the same name. Keys listed in absent are left out while their
// value is still empty.
func encodeObject(v any, extra map[string]json.RawMessage, absent []string) ([]byte, error) {
	data, err := marshalJSON(v)
	if err != nil || (len(extra) == 0 && len(absent) == 0) {
		return data, err
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for _, k := range absent {
		if isEmptyJSON(merged[k]) {
			delete(merged, k)
		}
	}
	for k, val := range extra {
		if _, known := merged[k]; !known {
			merged[k] = val
		}
	}
	return marshalJSON(merged)
}

func isEmptyJSON(v json.RawMessage) bool {
	switch string(v) {
	case "", "null", `""`, "[]", "{}", "0", "false":
		return true
	}
	return false
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// rowCells decodes a positional row into its raw cells.
func rowCells(data []byte) ([]json.RawMessage, error) {
	var cells []json.RawMessage
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// plainRow reports whether cells holds exactly the string cells that
// writing the fields back would produce. A most of zero means no upper bound.
func plainRow(cells []json.RawMessage, least, most int) bool {
	if len(cells) < least || (most > 0 && len(cells) > most) {
		return false
	}
	for _, c := range cells {
		if len(c) == 0 || c[0] != '"' {
			return false
		}
	}
	return true
}

// compactRow returns the compact text of a row that plainRow rejected.
func compactRow(data []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

// writeRow writes fields over the cells of the row they were read from. A
// cell whose text still matches its field keeps its original JSON. Cells past
// the fields are kept, and fields past the original row are only appended
// when something non-empty needs to follow.
func writeRow(row string, fields []string) ([]byte, error) {
	var cells []json.RawMessage
	if row != "" {
		var err error
		if cells, err = rowCells([]byte(row)); err != nil {
			return nil, err
		}
	}
	width := len(cells)
	for i := len(fields) - 1; i >= width; i-- {
		if fields[i] != "" {
			width = i + 1
			break
		}
	}
	if row == "" {
		width = len(fields)
	}
	out := make([]json.RawMessage, width)
	for i := range out {
		if i >= len(fields) {
			out[i] = cells[i]
			continue
		}
		if i < len(cells) {
			if text, err := cellText(cells[i]); err == nil && text == fields[i] {
				out[i] = cells[i]
				continue
			}
		}
		b, err := marshalJSON(fields[i])
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return marshalJSON(out)
}
