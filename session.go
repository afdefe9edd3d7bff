package winsys

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/winsys/driver"
	"github.com/vkngwrapper/winsys/internal/utils"
	"golang.org/x/exp/slog"
)

// Session is the process-wide handle to one device. It owns the backing
// connection, the capability probe results, and the persistent hardware
// context, and constructs every MemoryObject. Safe for concurrent use unless
// opened with CreateExternallySynchronized.
type Session struct {
	logger     *slog.Logger
	device     driver.Device
	useMutex   bool
	maxRelocs  int
	decodeSink io.Writer

	caps Caps
	info Info
	ctx  driver.ContextID

	statsMutex utils.OptionalMutex
	stats      Statistics
}

// Open probes the device and builds a session around it. The relaxed-delta
// addressing capability is mandatory: without it Open returns
// UnsupportedDeviceError and allocates nothing. Optional capability probe
// failures are absorbed into cleared Caps flags. Open also creates the
// session's one persistent hardware context; a session without a usable
// context is not viable, so a context creation failure fails Open entirely.
func Open(device driver.Device, options CreateOptions) (*Session, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("winsys.Open")

	if device == nil {
		panic("attempted to open a session with a nil device")
	}

	maxRelocs := options.MaxRelocsPerBuffer
	if maxRelocs == 0 {
		maxRelocs = defaultMaxRelocs
	}
	decodeSink := options.DecodeSink
	if decodeSink == nil {
		decodeSink = os.Stderr
	}

	s := &Session{
		logger:     logger,
		device:     device,
		useMutex:   options.Flags&CreateExternallySynchronized == 0,
		maxRelocs:  maxRelocs,
		decodeSink: decodeSink,
	}
	s.statsMutex.UseMutex = s.useMutex

	if err := s.probe(); err != nil {
		return nil, err
	}

	ctx, err := device.CreateContext()
	if err != nil {
		return nil, errors.Wrapf(UnsupportedDeviceError, "hardware context creation failed: %s", err.Error())
	}
	s.ctx = ctx

	return s, nil
}

// probe interrogates the device for its capabilities and geometry. Only the
// relaxed-delta check can fail the session; every other capability degrades
// to a cleared flag.
func (s *Session) probe() error {
	val, ok := s.device.Param(driver.ParamHasRelaxedDelta)
	if !ok || val == 0 {
		return errors.Wrap(UnsupportedDeviceError, "relaxed-delta addressing is required")
	}
	s.caps |= CapRelaxedDelta

	mappable, total, err := s.device.ApertureSizes()
	if err != nil {
		return errors.Wrapf(UnsupportedDeviceError, "aperture size query failed: %s", err.Error())
	}
	s.info = Info{
		ChipID:           s.device.ChipID(),
		ApertureMappable: mappable,
		ApertureTotal:    total,
	}

	if val, ok = s.device.Param(driver.ParamHasLLC); ok && val != 0 {
		s.caps |= CapLLC
	}
	if val, ok = s.device.Param(driver.ParamHasAliasingPPGTT); ok && val != 0 {
		s.caps |= CapPPGTT
	}
	if val, ok = s.device.Param(driver.ParamHasSOLReset); ok && val != 0 {
		s.caps |= CapSOLReset
	}
	if val, ok = s.device.Param(driver.ParamHasResetStats); ok && val != 0 {
		s.caps |= CapResetStats
	}
	if _, err = s.device.ReadRegister(driver.TimestampRegister); err == nil {
		s.caps |= CapTimestamp
	}

	s.logger.Debug("winsys.Session::probe",
		slog.String("Caps", s.caps.String()),
		slog.Int("ApertureMappable", mappable),
		slog.Int("ApertureTotal", total),
	)

	return nil
}

// Caps reports the capabilities probed at open time.
func (s *Session) Caps() Caps {
	return s.caps
}

// Info reports device identity and aperture geometry.
func (s *Session) Info() Info {
	return s.info
}

// Close releases the hardware context and then the backing connection. All
// objects are expected to have been released by their owners beforehand;
// using an object after its session is closed is undefined.
func (s *Session) Close() error {
	s.logger.Debug("winsys.Session::Close")

	if s.ctx != 0 {
		if err := s.device.DestroyContext(s.ctx); err != nil {
			return errors.Wrapf(err, "failed to destroy hardware context %d", s.ctx)
		}
		s.ctx = 0
	}

	return s.device.Close()
}
