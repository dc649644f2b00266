package calibration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/godoc/vfs/mapfs"
)

const hd280 = `
name: hd280
corrections:
  - frequency: 4000
    offset_db: -4
  - frequency: 1000
    offset_db: 0
  - frequency: 2000
    offset_db: 2
`

func TestReadProfile(t *testing.T) {
	p, err := ReadProfile(strings.NewReader(hd280))
	require.NoError(t, err)
	assert.Equal(t, "hd280", p.Name)
	require.Len(t, p.Corrections, 3)
	assert.Equal(t, []float64{1000, 2000, 4000}, []float64{
		p.Corrections[0].Frequency, p.Corrections[1].Frequency, p.Corrections[2].Frequency,
	})
}

func TestReadProfileRejectsUnknownFields(t *testing.T) {
	_, err := ReadProfile(strings.NewReader("name: x\ngain: 3\n"))
	require.Error(t, err)
}

func TestReadProfileInvalid(t *testing.T) {
	_, err := ReadProfile(strings.NewReader(`
corrections:
  - frequency: 0
    offset_db: 0
  - frequency: 1000
    offset_db: 30
  - frequency: 1000
    offset_db: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
	assert.Contains(t, err.Error(), "outside")
	assert.Contains(t, err.Error(), "duplicate")
}

func TestProfileCorrection(t *testing.T) {
	p, err := ReadProfile(strings.NewReader(hd280))
	require.NoError(t, err)

	tests := []struct {
		freq, want float64
	}{
		{250, 0},
		{1000, 0},
		{2000, 2},
		{4000, -4},
		{8000, -4},
		{1000 * 1.4142135623730951, 1}, // half an octave
		{3000, 2 - 6*0.5849625007211562},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, p.Correction(tt.freq), 1e-9, "%v Hz", tt.freq)
	}
	assert.InDelta(t, 62, p.Level(2000, 60), 1e-9)
}

func TestNilProfile(t *testing.T) {
	var p *Profile
	assert.Zero(t, p.Correction(1000))
	assert.Equal(t, 40.0, p.Level(1000, 40))
}

func TestLoadProfile(t *testing.T) {
	fs := mapfs.New(map[string]string{"profiles/hd280.yaml": hd280})

	p, err := LoadProfile(fs, "/profiles/hd280.yaml")
	require.NoError(t, err)
	assert.Equal(t, "hd280", p.Name)

	_, err = LoadProfile(fs, "/profiles/missing.yaml")
	require.Error(t, err)
}

func TestLoadProfileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hd280.yaml")
	require.NoError(t, os.WriteFile(path, []byte(hd280), 0o644))

	p, err := LoadProfileFile(path)
	require.NoError(t, err)
	assert.Len(t, p.Corrections, 3)
}

func TestCorrectionUnsortedPoints(t *testing.T) {
	p := &Profile{Corrections: []Point{
		{Frequency: 4000, OffsetDB: -4},
		{Frequency: 1000, OffsetDB: 0},
		{Frequency: 2000, OffsetDB: 2},
	}}
	require.NoError(t, p.Validate())

	assert.Equal(t, 2.0, p.Correction(2000))
	assert.Equal(t, 0.0, p.Correction(1000))
	assert.Equal(t, 0.0, p.Correction(500))
	assert.Equal(t, -4.0, p.Correction(8000))
	assert.InDelta(t, 1, p.Correction(1000*1.4142135623730951), 1e-9)
}

func TestClone(t *testing.T) {
	p := &Profile{Name: "x", Corrections: []Point{
		{Frequency: 2000, OffsetDB: 2},
		{Frequency: 1000, OffsetDB: 0},
	}}
	c := p.Clone()
	assert.Equal(t, "x", c.Name)
	assert.Equal(t, []Point{{1000, 0}, {2000, 2}}, c.Corrections)

	p.Corrections[0].OffsetDB = 9
	assert.Equal(t, 2.0, c.Correction(2000))

	var none *Profile
	assert.Nil(t, none.Clone())
}
