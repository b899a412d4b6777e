package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leads/internal/core"
)

func TestDecodeDefinition(t *testing.T) {
	d := core.FieldDefinition{ID: 4}
	err := decodeDefinition(&d, "checkbox", []byte(`[{"value":"red","label":"Red"},{"value":"blue","label":""}]`))
	require.NoError(t, err)

	assert.Equal(t, core.FieldMultiChoice, d.Type)
	assert.Equal(t, []core.Option{{Value: "red", Label: "Red"}, {Value: "blue"}}, d.Options)
}

func TestDecodeDefinition_Errors(t *testing.T) {
	d := core.FieldDefinition{ID: 4}
	err := decodeDefinition(&d, "hologram", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 4")

	err = decodeDefinition(&d, "select", []byte(`{"value":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 4 options")
}

func TestDecodeOptions_Empty(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		opts, err := decodeOptions([]byte(raw))
		require.NoError(t, err, raw)
		assert.Nil(t, opts, raw)
	}
}

func TestDecodeValue(t *testing.T) {
	v, err := decodeValue(nil)
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())

	v, err = decodeValue([]byte(`["a","b"]`))
	require.NoError(t, err)
	assert.True(t, v.Equal(core.List("a", "b")))

	v, err = decodeValue([]byte(`"647913600"`))
	require.NoError(t, err)
	assert.Equal(t, "647913600", v.String())

	_, err = decodeValue([]byte(`{`))
	assert.Error(t, err)
}

func TestMenuLabelAndOrder(t *testing.T) {
	ms := []core.MasterForm{
		{ID: 9, Orphaned: true},
		{ID: 2, Title: "Newsletter", MenuLabel: ""},
		{ID: 1, Title: "Contact", MenuLabel: "Contact requests"},
	}
	for i := range ms {
		ms[i].Title, ms[i].MenuLabel = menuLabel(ms[i].ID, ms[i].Title, ms[i].MenuLabel)
	}
	sortMasters(ms)

	assert.Equal(t, []core.MasterForm{
		{ID: 1, Title: "Contact", MenuLabel: "Contact requests"},
		{ID: 9, Title: "ID 9", MenuLabel: "ID 9", Orphaned: true},
		{ID: 2, Title: "Newsletter", MenuLabel: "Newsletter"},
	}, ms)
}

func TestIDFilter(t *testing.T) {
	assert.Equal(t, []int64{}, idFilter(nil))
	assert.Equal(t, []int64{3}, idFilter([]int64{3}))
}
