package winsys

import (
	"encoding/binary"
	"fmt"

	"github.com/vkngwrapper/winsys/driver"
	"golang.org/x/exp/slog"
)

const (
	miNoop           uint32 = 0x00000000
	miBatchBufferEnd uint32 = 0x05000000
)

func decodeMnemonic(dword uint32) string {
	switch dword {
	case miNoop:
		return "MI_NOOP"
	case miBatchBufferEnd:
		return "MI_BATCH_BUFFER_END"
	}
	return ""
}

// DecodeBatch writes a best-effort human-readable rendering of the batch's
// first usedBytes to the session's decode sink. This path is diagnostic
// only: any failure (inability to map, a short buffer, a write error on the
// sink) is swallowed and must never affect submission correctness.
func (s *Session) DecodeBatch(batch *MemoryObject, usedBytes int) {
	s.logger.Debug("winsys.Session::DecodeBatch", slog.String("Name", batch.name))

	// Async mapping: decoding must not stall on in-flight work.
	data, err := s.device.Map(batch.handle, driver.MapKindCPUAsync, false)
	if err != nil {
		return
	}
	defer func() {
		if unmapErr := s.device.Unmap(batch.handle); unmapErr != nil {
			s.logger.Debug("winsys.Session::DecodeBatch unmap failed", slog.Any("error", unmapErr))
		}
	}()

	if usedBytes > len(data) {
		usedBytes = len(data)
	}
	base := batch.presumed.Load()

	for i := 0; i+4 <= usedBytes; i += 4 {
		dword := binary.LittleEndian.Uint32(data[i:])
		if mnemonic := decodeMnemonic(dword); mnemonic != "" {
			_, _ = fmt.Fprintf(s.decodeSink, "0x%08x: 0x%08x %s\n", base+uint64(i), dword, mnemonic)
			continue
		}
		_, _ = fmt.Fprintf(s.decodeSink, "0x%08x: 0x%08x\n", base+uint64(i), dword)
	}
}
