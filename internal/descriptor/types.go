package descriptor

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind is how an object moves during the recording.
type Kind int

const (
	KindStatic     Kind = iota // placed once, no trajectory
	KindRigid                  // one pose per frame
	KindDeformable             // one vertex set per frame
	KindAuto                   // animated, rigid or deformable decided from the trajectory file
)

var kindNames = [...]string{"static", "rigid", "deformable", "auto"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Animated reports whether objects of this kind need a trajectory file.
func (k Kind) Animated() bool { return k != KindStatic }

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind maps a descriptor "type" value to a Kind. Matching is
// case-insensitive. KindAuto is never written; it is inferred when a
// monitor is given without a type.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames[:KindAuto] {
		if s == n {
			return Kind(i), nil
		}
	}
	return KindStatic, fmt.Errorf("unknown type %q (want static, rigid or deformable)", s)
}

// ObjectSpec is one object of a scene, read-only after decode.
type ObjectSpec struct {
	Name    string
	Mesh    string // resolved mesh file path
	Monitor string // resolved trajectory file path, empty for static objects
	Kind    Kind

	Scale       mgl64.Vec3
	Translation mgl64.Vec3
	Rotation    mgl64.Quat

	// Required objects fail the whole run when they cannot be imported.
	Required bool
}

// Scene is a decoded scene descriptor.
type Scene struct {
	Path    string // source document, empty when decoded from a reader
	BaseDir string // directory relative paths were resolved against

	Frames    int // explicit total frame count, 0 = use trajectory lengths
	Frequency int // keep every Nth trajectory record
	Objects   []ObjectSpec
}

// Animated returns the objects that have a trajectory file, in declaration order.
func (s *Scene) Animated() []ObjectSpec {
	var out []ObjectSpec
	for _, o := range s.Objects {
		if o.Kind.Animated() {
			out = append(out, o)
		}
	}
	return out
}
