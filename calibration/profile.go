package calibration

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"slices"

	"golang.org/x/tools/godoc/vfs"
	"gopkg.in/yaml.v3"
)

// MaxCorrection bounds a single profile offset in dB.
const MaxCorrection = 20.0

// Point is one measured correction: the offset in dB to add to the requested
// level at Frequency so the headphone produces the intended hearing level.
type Point struct {
	Frequency float64 `yaml:"frequency"`
	OffsetDB  float64 `yaml:"offset_db"`
}

// Profile is a per-frequency correction table for one transducer, e.g.
//
//	name: hd280
//	corrections:
//	  - frequency: 1000
//	    offset_db: 0
//	  - frequency: 4000
//	    offset_db: -3.5
//
// A nil Profile applies no correction.
type Profile struct {
	Name        string  `yaml:"name"`
	Corrections []Point `yaml:"corrections"`
}

// Correction returns the offset for frequency. Between table points it is
// interpolated linearly over log2(frequency), i.e. per octave. Outside the
// table the nearest end point applies. The points may be in any order.
func (p *Profile) Correction(frequency float64) float64 {
	if p == nil || len(p.Corrections) == 0 || frequency <= 0 {
		return 0
	}
	var lo, hi *Point
	for i := range p.Corrections {
		pt := &p.Corrections[i]
		if pt.Frequency == frequency {
			return pt.OffsetDB
		}
		if pt.Frequency < frequency && (lo == nil || pt.Frequency > lo.Frequency) {
			lo = pt
		}
		if pt.Frequency > frequency && (hi == nil || pt.Frequency < hi.Frequency) {
			hi = pt
		}
	}
	switch {
	case lo == nil:
		return hi.OffsetDB
	case hi == nil:
		return lo.OffsetDB
	}
	t := (math.Log2(frequency) - math.Log2(lo.Frequency)) / (math.Log2(hi.Frequency) - math.Log2(lo.Frequency))
	return lo.OffsetDB + (hi.OffsetDB-lo.OffsetDB)*t
}

// Level applies the correction for frequency to dbHL. The result still goes
// through GainFor, so the clamp and the full-scale ceiling hold.
func (p *Profile) Level(frequency, dbHL float64) float64 {
	return dbHL + p.Correction(frequency)
}

// Validate checks every point and returns all failures joined.
func (p *Profile) Validate() error {
	var errs []error
	seen := make(map[float64]bool, len(p.Corrections))
	for i, pt := range p.Corrections {
		if !(pt.Frequency > 0) || math.IsInf(pt.Frequency, 0) {
			errs = append(errs, fmt.Errorf("corrections[%d]: frequency %v must be positive", i, pt.Frequency))
		}
		if math.IsNaN(pt.OffsetDB) || math.Abs(pt.OffsetDB) > MaxCorrection {
			errs = append(errs, fmt.Errorf("corrections[%d]: offset_db %v outside ±%v", i, pt.OffsetDB, MaxCorrection))
		}
		if seen[pt.Frequency] {
			errs = append(errs, fmt.Errorf("corrections[%d]: duplicate frequency %v", i, pt.Frequency))
		}
		seen[pt.Frequency] = true
	}
	return errors.Join(errs...)
}

// ReadProfile decodes and validates a YAML profile. Points are sorted by frequency.
func ReadProfile(r io.Reader) (*Profile, error) {
	p := &Profile{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("calibration: decode yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: invalid profile %q: %w", p.Name, err)
	}
	p.sortPoints()
	return p, nil
}

// Clone returns a copy of p with its points sorted by frequency. The copy
// shares nothing with p, so later edits to p do not reach it.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := &Profile{Name: p.Name, Corrections: slices.Clone(p.Corrections)}
	c.sortPoints()
	return c
}

func (p *Profile) sortPoints() {
	slices.SortFunc(p.Corrections, func(a, b Point) int {
		return cmp.Compare(a.Frequency, b.Frequency)
	})
}

// LoadProfile reads a profile from a virtual filesystem.
func LoadProfile(fs vfs.Opener, path string) (*Profile, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	p, err := ReadProfile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadProfileFile reads a profile from a regular file.
func LoadProfileFile(path string) (*Profile, error) {
	return LoadProfile(vfs.OS(filepath.Dir(path)), filepath.Base(path))
}
