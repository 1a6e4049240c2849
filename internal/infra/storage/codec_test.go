package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
)

func sampleData() *gamedata.GameData {
	return &gamedata.GameData{
		AvailableNutrients:      42.5,
		LifetimeNutrients:       1337.25,
		NutrientsPerSecond:      3.2,
		AutoProductionPerSecond: 6,
		LastSaveTime:            1760000000.5,
		GeneratorCounts:         []int{3, 1},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		raw, err := Encode(sampleData(), compress)
		require.NoError(t, err)
		assert.Equal(t, compress, bytes.HasPrefix(raw, lz4Magic))

		got, err := Decode(raw)
		require.NoError(t, err)
		if diff := cmp.Diff(sampleData(), got); diff != "" {
			t.Errorf("compress=%v: decoded record mismatch (-want +got):\n%s", compress, diff)
		}
	}
}

func TestDecodeRejectsTamperedData(t *testing.T) {
	raw, err := Encode(sampleData(), false)
	require.NoError(t, err)

	tampered := bytes.Replace(raw, []byte(`"available_nutrients": 42.5`), []byte(`"available_nutrients": 99.5`), 1)
	require.NotEqual(t, raw, tampered)

	_, err = Decode(tampered)
	assert.True(t, errors.Is(err, ErrCorruptSave), "got %v", err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	inputs := [][]byte{
		[]byte("not json"),
		[]byte(`{"format":99,"checksum":"","data":{}}`),
		[]byte(`{"format":1,"checksum":""}`),
		append(append([]byte{}, lz4Magic...), 0xff, 0xff),
	}
	for _, in := range inputs {
		_, err := Decode(in)
		assert.ErrorIs(t, err, ErrCorruptSave, "input %q", in)
	}
}

func TestDecodeNilCountsBecomeEmpty(t *testing.T) {
	d := sampleData()
	d.GeneratorCounts = nil
	raw, err := Encode(d, false)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.NotNil(t, got.GeneratorCounts)
	assert.Empty(t, got.GeneratorCounts)
}

func TestExportImportString(t *testing.T) {
	s, err := ExportString(sampleData())
	require.NoError(t, err)
	assert.NotContains(t, s, "\n")

	got, err := ImportString("  " + s + "\n")
	require.NoError(t, err)
	if diff := cmp.Diff(sampleData(), got); diff != "" {
		t.Errorf("imported record mismatch (-want +got):\n%s", diff)
	}

	_, err = ImportString("somethingelse")
	assert.ErrorIs(t, err, ErrCorruptSave)

	_, err = ImportString(exportPrefix + "!!!")
	assert.ErrorIs(t, err, ErrCorruptSave)
}
