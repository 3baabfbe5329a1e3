package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Document is the schemaless persisted form of a record: the server-owned
// identity and timestamps plus the entity attributes. It serializes flat, so
// `{"id":1,"name":"GST"}` decodes into both a Document and a typed record.
type Document struct {
	ID         int64
	Attributes map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	fieldID        = "id"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// MarshalJSON flattens attributes next to the identity fields.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Attributes)+3)
	for k, v := range d.Attributes {
		out[k] = v
	}
	out[fieldID] = d.ID
	if !d.CreatedAt.IsZero() {
		out[fieldCreatedAt] = d.CreatedAt
	}
	if !d.UpdatedAt.IsZero() {
		out[fieldUpdatedAt] = d.UpdatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits identity fields from attributes. Numbers are kept as
// json.Number so integer ids survive round trips unchanged.
func (d *Document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	doc := Document{}
	if v, ok := raw[fieldID]; ok {
		id, ok := toInt64(v)
		if !ok && v != nil {
			return fmt.Errorf("document id: unexpected value %v", v)
		}
		doc.ID = id
	}
	for _, f := range []string{fieldCreatedAt, fieldUpdatedAt} {
		v, ok := raw[f].(string)
		if !ok || v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("document %s: %w", f, err)
		}
		if f == fieldCreatedAt {
			doc.CreatedAt = ts
		} else {
			doc.UpdatedAt = ts
		}
	}
	delete(raw, fieldID)
	delete(raw, fieldCreatedAt)
	delete(raw, fieldUpdatedAt)
	doc.Attributes = raw
	*d = doc
	return nil
}

// Clone returns a copy whose attribute map can be mutated independently.
func (d Document) Clone() Document {
	cp := d
	if d.Attributes != nil {
		cp.Attributes = make(map[string]any, len(d.Attributes))
		for k, v := range d.Attributes {
			cp.Attributes[k] = v
		}
	}
	return cp
}

// Text renders an attribute as a string; missing attributes render empty.
func (d Document) Text(field string) string {
	v, ok := d.Attributes[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int reads an integral attribute such as a foreign id.
func (d Document) Int(field string) (int64, bool) {
	return toInt64(d.Attributes[field])
}

// DecodeRecord converts a document into its typed record.
func DecodeRecord[T Record](d Document) (T, error) {
	var out T
	b, err := json.Marshal(d)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode record %d: %w", d.ID, err)
	}
	return out, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), f == float64(int64(f))
	case float64:
		return int64(n), n == float64(int64(n))
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
