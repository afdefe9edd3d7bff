package gem

import (
	"encoding/binary"

	cerrors "github.com/cockroachdb/errors"
	"github.com/vkngwrapper/winsys/driver"
	"github.com/vkngwrapper/winsys/internal/utils"
)

func (d *Device) ringEnabled(ring driver.RingKind) bool {
	if d.opts.Rings == nil {
		return true
	}
	for _, enabled := range d.opts.Rings {
		if enabled == ring {
			return true
		}
	}
	return false
}

func (d *Device) Exec(batch driver.Handle, used int, ring driver.RingKind, flags driver.ExecFlags, ctx driver.ContextID, relocs []driver.RelocEntry) error {
	if d.Faults.Exec != nil {
		if err := d.Faults.Exec(ring); err != nil {
			return err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.ringEnabled(ring) {
		return cerrors.Newf("ring %s is not available on this device", ring.String())
	}

	batchObj, err := d.lookup(batch)
	if err != nil {
		return err
	}
	if used < 0 || used > batchObj.size {
		return cerrors.Newf("batch of size %d cannot execute %d bytes", batchObj.size, used)
	}
	if ctx != 0 {
		if _, live := d.contexts[ctx]; !live {
			return cerrors.Newf("context %d is not live", ctx)
		}
	}

	// Resolve every relocation before touching any state, so a bad entry
	// fails the whole submission cleanly.
	targets := make([]*object, len(relocs))
	for i := range relocs {
		target, err := d.lookup(relocs[i].Target)
		if err != nil {
			return err
		}
		if int(relocs[i].Offset)+4 > used {
			return cerrors.Newf("relocation at offset %d lands outside the %d used bytes of the batch", relocs[i].Offset, used)
		}
		targets[i] = target
	}

	seq := d.nextSeq + 1
	d.nextSeq = seq

	d.place(batchObj)
	batchObj.busySeq = seq

	for i := range relocs {
		target := targets[i]
		d.place(target)
		target.busySeq = seq

		// Patch the low 32 bits of the resolved address into the batch, the
		// way execbuffer fixes up presumed offsets that went stale.
		resolved := target.offset + uint64(relocs[i].TargetOffset)
		binary.LittleEndian.PutUint32(batchObj.data[relocs[i].Offset:], uint32(resolved))
	}

	return nil
}

// place assigns a GPU address if the object does not hold one, bumping
// through the aperture and wrapping when it runs past the end. Wrapping moves
// objects, which is exactly why recorded addresses are only presumed.
func (d *Device) place(obj *object) {
	if obj.offset != 0 {
		return
	}

	if d.nextOffset+uint64(obj.size) > uint64(d.opts.ApertureTotal) {
		d.nextOffset = uint64(pageAlignment)
	}

	obj.offset = d.nextOffset
	d.nextOffset += uint64(utils.AlignUp(obj.size, pageAlignment))
}
