package winsys

import (
	"io"

	"github.com/vkngwrapper/core/v2/common"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific session behaviors to activate or deactivate.
type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized ensures that this session and all objects
	// created from it will not be synchronized internally. The consumer must
	// guarantee they are used from only one thread at a time or are
	// synchronized by some other mechanism, but performance may improve
	// because internal mutexes are not used.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
}

const (
	// defaultMaxRelocs is the relocation capacity given to command buffers
	// when CreateOptions does not provide one.
	defaultMaxRelocs = 4096
)

// CreateOptions contains optional settings when opening a session.
type CreateOptions struct {
	// Flags indicates specific session behaviors to activate or deactivate.
	Flags CreateFlags

	// Logger receives debug traces and warnings. slog.Default() is used when
	// nil.
	Logger *slog.Logger

	// MaxRelocsPerBuffer fixes the relocation capacity of every command
	// buffer created under this session.
	MaxRelocsPerBuffer int

	// DecodeSink receives best-effort batch disassembly from DecodeBatch.
	// os.Stderr is used when nil.
	DecodeSink io.Writer
}
