// Package scene holds the host scene the importer writes into.
package scene

import (
	"errors"

	"sofa-scene-importer/internal/mesh"
	"sofa-scene-importer/internal/timeline"

	"github.com/go-gl/mathgl/mgl64"
)

// ObjectID identifies an instantiated object within one Graph.
type ObjectID int

// ErrUnknownObject is returned for IDs that were never issued or were removed.
var ErrUnknownObject = errors.New("scene: unknown object")

// Graph is the host scene. Implementations are driven from one goroutine.
type Graph interface {
	// Instantiate places a new object sharing mesh geometry. The returned
	// name may differ from name when it is already taken.
	Instantiate(name string, h *mesh.Handle, base timeline.Pose) (ObjectID, error)
	SetPoseKey(id ObjectID, frame int, pose timeline.Pose) error
	SetVertexKey(id ObjectID, frame int, positions []mgl64.Vec3) error
	SetFrameRange(r timeline.Range) error
	Remove(id ObjectID) error
}
