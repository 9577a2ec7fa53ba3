package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/mathutil"

	"github.com/go-gl/mathgl/mgl64"
)

// rigidWidth is time + position (3) + quaternion (4). Deformable records are
// 1+3k wide and can never be 8 fields, which makes KindAuto unambiguous.
const rigidWidth = 8

// Options tune parsing.
type Options struct {
	// Frequency keeps every Nth valid record (1 or less keeps all).
	// Every record is still validated.
	Frequency int
}

// Parse reads a SOFA Monitor position file.
//
// Supported kinds are rigid, deformable and auto; auto picks rigid when the
// first data record is 8 fields wide. Failures are *ParseError except for
// I/O errors, which are returned wrapped.
func Parse(path string, kind descriptor.Kind, opts Options) (Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("monitor: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseReader(f, path, kind, opts)
}

// ParseReader is Parse over an already open stream. name is used in errors.
func ParseReader(r io.Reader, name string, kind descriptor.Kind, opts Options) (Trajectory, error) {
	if !kind.Animated() {
		return nil, fmt.Errorf("monitor: %s: %s objects have no trajectory", name, kind)
	}
	p := &parser{
		name: name,
		kind: kind,
		freq: max(opts.Frequency, 1),
	}
	if err := eachLine(r, p.line); err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, fmt.Errorf("monitor: read %s: %w", name, err)
	}
	return p.result()
}

type parser struct {
	name string
	kind descriptor.Kind
	freq int

	indices     []int
	seenContent bool // any non-blank line, comments included
	seenData    bool
	vertexCount int
	vertexLine  int
	lastTime    float64
	valid       int
	rigid       []RigidFrame
	deformable  []DeformableFrame
}

func (p *parser) fail(line int, kind error, format string, args ...any) error {
	return &ParseError{Path: p.name, Line: line, Err: kind, Detail: fmt.Sprintf(format, args...)}
}

func (p *parser) line(n int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	first := !p.seenContent
	p.seenContent = true

	if strings.HasPrefix(text, "#") {
		if idx, ok := parseHeaderIndices(text); ok {
			p.indices = idx
		}
		return nil
	}

	fields := strings.Fields(text)
	if first && !isNumber(fields[0]) {
		// Column header without a leading '#'.
		return nil
	}

	if !p.seenData {
		p.seenData = true
		if p.kind == descriptor.KindAuto {
			if len(fields) == rigidWidth {
				p.kind = descriptor.KindRigid
			} else {
				p.kind = descriptor.KindDeformable
			}
		}
	}

	switch p.kind {
	case descriptor.KindRigid:
		if len(fields) != rigidWidth {
			return p.fail(n, ErrMalformedRecord, "want %d fields (time, position, quaternion), got %d", rigidWidth, len(fields))
		}
	default:
		if len(fields) < 4 || (len(fields)-1)%3 != 0 {
			return p.fail(n, ErrMalformedRecord, "want time followed by x y z triples, got %d fields", len(fields))
		}
	}

	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return p.fail(n, ErrMalformedRecord, "field %d: %q is not a number", i+1, f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return p.fail(n, ErrMalformedRecord, "field %d: %q is not finite", i+1, f)
		}
		vals[i] = v
	}

	t := vals[0]
	if p.valid > 0 && t < p.lastTime {
		return p.fail(n, ErrMalformedRecord, "time %g is before previous time %g", t, p.lastTime)
	}

	keep := p.valid%p.freq == 0
	switch p.kind {
	case descriptor.KindRigid:
		// On disk: px py pz qx qy qz qw.
		q, ok := mathutil.QuatWXYZ(vals[7], vals[4], vals[5], vals[6])
		if !ok {
			return p.fail(n, ErrMalformedRecord, "degenerate orientation quaternion")
		}
		if keep {
			p.rigid = append(p.rigid, RigidFrame{
				Time:        t,
				Position:    mgl64.Vec3{vals[1], vals[2], vals[3]},
				Orientation: q,
			})
		}
	default:
		count := (len(vals) - 1) / 3
		if p.valid == 0 {
			if p.indices != nil && len(p.indices) != count {
				return p.fail(n, ErrInconsistentVertexCount, "header lists %d particles, record has %d", len(p.indices), count)
			}
			p.vertexCount = count
			p.vertexLine = n
		} else if count != p.vertexCount {
			return p.fail(n, ErrInconsistentVertexCount, "record has %d vertices, line %d had %d", count, p.vertexLine, p.vertexCount)
		}
		if keep {
			pos := make([]mgl64.Vec3, count)
			for i := range pos {
				pos[i] = mgl64.Vec3{vals[1+3*i], vals[2+3*i], vals[3+3*i]}
			}
			p.deformable = append(p.deformable, DeformableFrame{Time: t, Positions: pos})
		}
	}

	p.lastTime = t
	p.valid++
	return nil
}

func (p *parser) result() (Trajectory, error) {
	if p.valid == 0 {
		return nil, &ParseError{Path: p.name, Err: ErrEmptyTrajectory, Detail: "no data records"}
	}
	if p.kind == descriptor.KindRigid {
		return &RigidTrajectory{Path: p.name, Indices: p.indices, Frames: p.rigid}, nil
	}
	return &DeformableTrajectory{Path: p.name, Indices: p.indices, Frames: p.deformable}, nil
}

// parseHeaderIndices reads the particle list of a SOFA header line:
//
//	# 1st Column : time, others : particle(s) number 0 1 2
func parseHeaderIndices(line string) ([]int, bool) {
	i := strings.LastIndex(line, "number")
	if i < 0 {
		return nil, false
	}
	toks := strings.Fields(line[i+len("number"):])
	if len(toks) == 0 {
		return nil, false
	}
	idx := make([]int, len(toks))
	for j, tok := range toks {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, false
		}
		idx[j] = v
	}
	return idx, true
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// eachLine calls fn for every line with its 1-based number. Lines may be
// arbitrarily long; deformable records carry every vertex of a mesh.
func eachLine(r io.Reader, fn func(n int, line string) error) error {
	br := bufio.NewReaderSize(r, 1<<16)
	n := 0
	for {
		s, err := br.ReadString('\n')
		if len(s) > 0 {
			n++
			if ferr := fn(n, s); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
