package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Member is a row of an organization's member table. On disk it is the
// positional array [name, position, status, join_date].
type Member struct {
	Name     string
	Position string
	Status   string
	JoinDate string

	// row is the compact source row when it was not four plain strings.
	row string
}

// Fields returns the member in its positional order.
func (m Member) Fields() []string {
	return []string{m.Name, m.Position, m.Status, m.JoinDate}
}

// MarshalJSON writes the positional array form. A decoded row keeps its
// length, its extra cells and the JSON type of any cell left unchanged.
func (m Member) MarshalJSON() ([]byte, error) {
	return writeRow(m.row, m.Fields())
}

// UnmarshalJSON reads the positional array form. Missing trailing fields
// decode as empty strings.
func (m *Member) UnmarshalJSON(data []byte) error {
	cells, fields, err := decodeRow(data)
	if err != nil {
		return fmt.Errorf("decode member: %w", err)
	}
	*m = Member{
		Name:     at(fields, 0),
		Position: at(fields, 1),
		Status:   at(fields, 2),
		JoinDate: at(fields, 3),
	}
	if !plainRow(cells, 4, 4) {
		m.row = compactRow(data)
	}
	return nil
}

// Applicant is a pending membership request. On disk it is the positional
// array [name, position, ...]; anything after the position is kept in Extra.
type Applicant struct {
	Name     string
	Position string
	Extra    []string

	row string
}

// Fields returns the applicant in its positional order.
func (a Applicant) Fields() []string {
	out := make([]string, 0, 2+len(a.Extra))
	out = append(out, a.Name, a.Position)
	return append(out, a.Extra...)
}

// MarshalJSON writes the positional array form, keeping a decoded row's
// shape the way Member does.
func (a Applicant) MarshalJSON() ([]byte, error) {
	return writeRow(a.row, a.Fields())
}

// UnmarshalJSON reads the positional array form.
func (a *Applicant) UnmarshalJSON(data []byte) error {
	cells, fields, err := decodeRow(data)
	if err != nil {
		return fmt.Errorf("decode applicant: %w", err)
	}
	*a = Applicant{Name: at(fields, 0), Position: at(fields, 1)}
	if len(fields) > 2 {
		a.Extra = append([]string(nil), fields[2:]...)
	}
	if !plainRow(cells, 2, 0) {
		a.row = compactRow(data)
	}
	return nil
}

// decodeRow reads a JSON array whose cells may be strings, numbers, booleans
// or null and returns the raw cells with each one in string form.
func decodeRow(data []byte) ([]json.RawMessage, []string, error) {
	cells, err := rowCells(data)
	if err != nil {
		return nil, nil, err
	}
	out := make([]string, len(cells))
	for i, c := range cells {
		if out[i], err = cellText(c); err != nil {
			return nil, nil, err
		}
	}
	return cells, out, nil
}

func cellText(cell json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(cell, &v); err != nil {
		return "", err
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return string(cell), nil
}

func at(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
