package gem

import (
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/winsys/driver"
	"github.com/vkngwrapper/winsys/internal/utils"
)

func (d *Device) CreateObject(name string, size int, cpuInit bool) (driver.Handle, error) {
	if d.Faults.CreateObject != nil {
		if err := d.Faults.CreateObject(name, size); err != nil {
			return driver.Handle{}, err
		}
	}
	if size < 1 {
		return driver.Handle{}, cerrors.Newf("object %q requested a size of %d bytes", name, size)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return driver.Handle{}, DeviceClosedError
	}

	alignedSize := utils.AlignUp(size, pageAlignment)
	obj := &object{
		name:    name,
		size:    alignedSize,
		data:    make([]byte, alignedSize),
		cpuInit: cpuInit,
		primeFD: -1,
		refs:    1,
	}
	h := d.allocSlot(obj)
	utils.DebugValidate(d)

	return h, nil
}

func (d *Device) OpenByName(name string, flink uint32) (driver.Handle, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return driver.Handle{}, DeviceClosedError
	}

	obj, ok := d.flinkNames.Get(flink)
	if !ok {
		return driver.Handle{}, cerrors.Newf("no object is published under flink name %d", flink)
	}
	obj.refs++

	return d.allocSlot(obj), nil
}

func (d *Device) ImportPrime(fd int, size int) (driver.Handle, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return driver.Handle{}, DeviceClosedError
	}

	obj, ok := d.primeFDs.Get(fd)
	if !ok {
		return driver.Handle{}, cerrors.Newf("descriptor %d does not name a shareable object", fd)
	}
	obj.refs++

	return d.allocSlot(obj), nil
}

func (d *Device) CloseObject(h driver.Handle) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return err
	}

	obj.refs--
	if obj.refs == 0 {
		if obj.flink != 0 {
			d.flinkNames.Delete(obj.flink)
		}
		if obj.primeFD >= 0 {
			d.primeFDs.Delete(obj.primeFD)
		}
	}

	d.slots[h.Index].obj = nil
	d.freeList = append(d.freeList, h.Index)
	utils.DebugValidate(d)

	return nil
}

func (d *Device) Flink(h driver.Handle) (uint32, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return 0, err
	}

	if obj.flink == 0 {
		obj.flink = d.nextFlink
		d.nextFlink++
		d.flinkNames.Put(obj.flink, obj)
	}

	return obj.flink, nil
}

func (d *Device) ExportPrime(h driver.Handle) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return 0, err
	}

	if obj.primeFD < 0 {
		obj.primeFD = d.nextFD
		d.nextFD++
		d.primeFDs.Put(obj.primeFD, obj)
	}

	return obj.primeFD, nil
}

func (d *Device) GlobalHandle(h driver.Handle) (uint32, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	_, err := d.lookup(h)
	if err != nil {
		return 0, err
	}

	return h.Index, nil
}

func (d *Device) Size(h driver.Handle) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return 0, err
	}

	return obj.size, nil
}

func (d *Device) Tiling(h driver.Handle) (driver.TilingMode, int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return driver.TilingNone, 0, err
	}

	return obj.tiling, obj.pitch, nil
}

func (d *Device) SetTiling(h driver.Handle, mode driver.TilingMode, pitch int) (driver.TilingMode, error) {
	applied := mode
	if d.Faults.SetTiling != nil {
		applied = d.Faults.SetTiling(mode)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return driver.TilingNone, err
	}

	obj.tiling = applied
	obj.pitch = pitch

	return applied, nil
}

func (d *Device) Map(h driver.Handle, kind driver.MapKind, forWrite bool) ([]byte, error) {
	if d.Faults.Map != nil {
		if err := d.Faults.Map(h, kind); err != nil {
			return nil, err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return nil, err
	}

	// Sync mapping paths block until outstanding work retires.
	if kind == driver.MapKindCPU || kind == driver.MapKindGTT {
		d.retire(obj.busySeq)
	}

	obj.mapCount++

	return obj.data, nil
}

func (d *Device) Unmap(h driver.Handle) error {
	if d.Faults.Unmap != nil {
		if err := d.Faults.Unmap(h); err != nil {
			return err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return err
	}

	if obj.mapCount < 1 {
		return errors.New("object is not mapped")
	}
	obj.mapCount--

	return nil
}

func (d *Device) Pwrite(h driver.Handle, offset int, data []byte) error {
	if d.Faults.Pwrite != nil {
		if err := d.Faults.Pwrite(h); err != nil {
			return err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > obj.size {
		return cerrors.Newf("write of %d bytes at offset %d does not fit in object of size %d", len(data), offset, obj.size)
	}

	d.retire(obj.busySeq)
	copy(obj.data[offset:], data)

	return nil
}

func (d *Device) Pread(h driver.Handle, offset int, data []byte) error {
	if d.Faults.Pread != nil {
		if err := d.Faults.Pread(h); err != nil {
			return err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > obj.size {
		return cerrors.Newf("read of %d bytes at offset %d does not fit in object of size %d", len(data), offset, obj.size)
	}

	d.retire(obj.busySeq)
	copy(data, obj.data[offset:])

	return nil
}

func (d *Device) Busy(h driver.Handle) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return false, err
	}

	return obj.busySeq > d.retiredSeq, nil
}

func (d *Device) Wait(h driver.Handle, timeout time.Duration) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return err
	}

	// The software timeline executes instantly, so waiting never times out
	// regardless of the requested timeout.
	d.retire(obj.busySeq)

	return nil
}

func (d *Device) Offset(h driver.Handle) (uint64, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, err := d.lookup(h)
	if err != nil {
		return 0, err
	}

	return obj.offset, nil
}

func (d *Device) ResidentBytes() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	resident := 0
	for i := range d.slots {
		obj := d.slots[i].obj
		if obj != nil && obj.busySeq > d.retiredSeq {
			resident += obj.size
		}
	}

	return resident
}

// retire advances the retired sequence number. Submissions complete in order
// on the single timeline, so retiring one sequence retires everything before
// it.
func (d *Device) retire(seq uint64) {
	if seq > d.retiredSeq {
		d.retiredSeq = seq
	}
}
