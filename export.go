package winsys

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// HandleKind selects one of the three cross-process sharing surfaces.
type HandleKind int32

const (
	// HandleKindShared is a named handle valid within one kernel instance.
	HandleKindShared HandleKind = iota
	// HandleKindFD is a descriptor-based handle valid across processes via
	// standard descriptor passing.
	HandleKindFD
	// HandleKindKMS is a display-subsystem handle for compositor and
	// modesetting use.
	HandleKindKMS
)

var handleKindMapping = make(map[HandleKind]string)

func (k HandleKind) String() string {
	return handleKindMapping[k]
}

func init() {
	handleKindMapping[HandleKindShared] = "HandleKindShared"
	handleKindMapping[HandleKindFD] = "HandleKindFD"
	handleKindMapping[HandleKindKMS] = "HandleKindKMS"
}

// ExportedHandle is the result of exporting an object for sharing. Value is
// a flink name, a descriptor, or a KMS handle depending on Kind. Tiling and
// stride ride along so an importer can reconstruct the object's layout.
type ExportedHandle struct {
	Kind   HandleKind
	Value  uint64
	Tiling TilingMode
	Stride int
}

// Export produces a sharing handle of the requested kind for obj. Fails with
// ExportFailedError when the backend refuses, e.g. for a non-shareable
// object.
func (s *Session) Export(obj *MemoryObject, kind HandleKind) (ExportedHandle, error) {
	s.logger.Debug("winsys.Session::Export",
		slog.String("Name", obj.name),
		slog.String("Kind", kind.String()),
	)

	tiling, stride := obj.Tiling()
	exported := ExportedHandle{Kind: kind, Tiling: tiling, Stride: stride}

	switch kind {
	case HandleKindShared:
		flink, err := s.device.Flink(obj.handle)
		if err != nil {
			return ExportedHandle{}, errors.Wrapf(ExportFailedError, "flink of %q refused: %s", obj.name, err.Error())
		}
		exported.Value = uint64(flink)
	case HandleKindFD:
		fd, err := s.device.ExportPrime(obj.handle)
		if err != nil {
			return ExportedHandle{}, errors.Wrapf(ExportFailedError, "descriptor export of %q refused: %s", obj.name, err.Error())
		}
		exported.Value = uint64(fd)
	case HandleKindKMS:
		raw, err := s.device.GlobalHandle(obj.handle)
		if err != nil {
			return ExportedHandle{}, errors.Wrapf(ExportFailedError, "kms handle for %q refused: %s", obj.name, err.Error())
		}
		exported.Value = uint64(raw)
	default:
		return ExportedHandle{}, errors.Wrapf(ExportFailedError, "unknown handle kind %d", kind)
	}

	return exported, nil
}
