package prob

import (
	"fmt"
	"io"

	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/cipkit/cipkit/event"
	"github.com/cipkit/cipkit/numerics"
)

// serialization format version; bump the major on incompatible layout changes
var serializeVersion = semver.MustParse("1.0.0")

type serializedVar struct {
	Name     string  `cbor:"name"`
	Lb       float64 `cbor:"lb"`
	Ub       float64 `cbor:"ub"`
	Obj      float64 `cbor:"obj"`
	Integral bool    `cbor:"int"`
}

type serializedProb struct {
	Version string          `cbor:"version"`
	Name    string          `cbor:"name"`
	Sense   int8            `cbor:"sense"`
	Vars    []serializedVar `cbor:"vars"`
}

// WriteTo serializes the static problem data (variables, global bounds,
// objective) in CBOR. Local bounds and constraint instances are not part of
// the stream.
func (p *Problem) WriteTo(w io.Writer) (int64, error) {
	sp := serializedProb{
		Version: serializeVersion.String(),
		Name:    p.name,
		Sense:   int8(p.sense),
		Vars:    make([]serializedVar, len(p.vars)),
	}
	for i, v := range p.vars {
		sp.Vars[i] = serializedVar{Name: v.name, Lb: v.glbLb, Ub: v.glbUb, Obj: v.obj, Integral: v.integral}
	}

	data, err := cbor.Marshal(sp)
	if err != nil {
		return 0, fmt.Errorf("prob: encode: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom deserializes a problem written by WriteTo. The incoming stream's
// format major version must match.
func ReadFrom(r io.Reader) (*Problem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("prob: read: %w", err)
	}
	var sp serializedProb
	if err := cbor.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("prob: decode: %w", err)
	}
	v, err := semver.ParseTolerant(sp.Version)
	if err != nil {
		return nil, fmt.Errorf("prob: bad format version %q: %w", sp.Version, err)
	}
	if v.Major != serializeVersion.Major {
		return nil, fmt.Errorf("prob: incompatible format version %s (want %d.x)", v, serializeVersion.Major)
	}

	p := New(sp.Name, Sense(sp.Sense))
	q := event.NewQueue()
	tol := numerics.Default()
	for _, sv := range sp.Vars {
		if _, err := p.AddVar(tol, q, sv.Name, sv.Lb, sv.Ub, sv.Obj, sv.Integral); err != nil {
			return nil, err
		}
	}
	return p, nil
}
