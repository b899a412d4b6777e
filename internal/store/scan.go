package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/leads/internal/core"
)

// decodeDefinition fills the parsed parts of a form_fields row.
func decodeDefinition(d *core.FieldDefinition, typ string, options []byte) error {
	t, err := core.ParseFieldType(typ)
	if err != nil {
		return fmt.Errorf("field %d: %w", d.ID, err)
	}
	d.Type = t

	opts, err := decodeOptions(options)
	if err != nil {
		return fmt.Errorf("field %d options: %w", d.ID, err)
	}
	d.Options = opts
	return nil
}

func decodeOptions(raw []byte) ([]core.Option, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	var opts []core.Option
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// decodeValue reads a jsonb value or label column; NULL is the empty value.
func decodeValue(raw []byte) (core.Value, error) {
	var v core.Value
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return core.Value{}, err
	}
	return v, nil
}

// menuLabel mirrors what navigation shows for a master id.
func menuLabel(id int64, title, label string) (string, string) {
	if title == "" {
		title = fmt.Sprintf("ID %d", id)
	}
	if label == "" {
		label = title
	}
	return title, label
}
