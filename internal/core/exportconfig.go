package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ConfigLoader reads stored export configurations.
// Configurations are user-editable, so nothing is cached between calls.
type ConfigLoader struct {
	store ExportStore
}

// NewConfigLoader creates a ConfigLoader.
func NewConfigLoader(store ExportStore) *ConfigLoader {
	return &ConfigLoader{store: store}
}

// Load returns the export configuration with the given id.
// The master is the owning form's master when set, else the owning form.
func (l *ConfigLoader) Load(ctx context.Context, id int64) (*ExportConfig, error) {
	row, ok, err := l.store.ExportConfigRow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load export config %d: %w", id, err)
	}
	if !ok {
		return nil, NewNotFound("export config", id)
	}

	fields, err := decodeIDList(row.Fields)
	if err != nil {
		return nil, fmt.Errorf("export config %d fields: %w", id, err)
	}
	tokens, err := decodeIDList(row.TokenFields)
	if err != nil {
		return nil, fmt.Errorf("export config %d token fields: %w", id, err)
	}

	master := row.FormMaster
	if master == 0 {
		master = row.FormID
	}

	return &ExportConfig{
		ID:          row.ID,
		FormID:      row.FormID,
		Name:        row.Name,
		Type:        row.Type,
		MasterID:    master,
		Fields:      fields,
		TokenFields: tokens,
	}, nil
}

// decodeIDList decodes a JSON array of ids. Elements may be numbers or
// numeric strings; null and empty input decode to an empty list.
func decodeIDList(raw json.RawMessage) ([]int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return []int64{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode id list: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		s := strings.Trim(string(bytes.TrimSpace(item)), `"`)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode id list: invalid id %s", item)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
