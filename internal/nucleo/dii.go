package nucleo

import "github.com/sirupsen/logrus"

// DeviceTableSize is the number of major devices the device-independent
// interface knows about: two keyboard device numbers, one that echoes by
// default and one that doesn't, matching the original's dev_table.
const DeviceTableSize = 2

const (
	DevKeyboard0 = 0 // no echo by default
	DevKeyboard1 = 1 // echoes by default
)

// device is the DII's function-pointer vtable, one per major device
// number: open/close/read/write/ioctl plus a name, following di_calls.c's
// devsw_t. There is no init entry; devices are ready once constructed.
type device struct {
	name  string
	open  func(p *PCB, deviceNo int) int32
	close func(p *PCB) int32
	read  func(p *PCB, buflen int) (int32, []byte)
	write func(p *PCB, buf []byte) int32
	ioctl func(p *PCB, command int, args any) int32
}

// openFile is what a process's fd table entry actually points at: the
// device vtable plus which major number was opened through it.
type openFile struct {
	dev      *device
	deviceNo int
}

// DII owns the device table and dispatches every sysopen/sysclose/
// syswrite/sysread/sysioctl call through it.
type DII struct {
	log     *logrus.Entry
	devices [DeviceTableSize]*device
}

func NewDII(log *logrus.Entry) *DII {
	return &DII{log: log}
}

// SetDevice installs the vtable for a major device number. Kernel boot
// calls this once the concrete devices (the keyboard controller, wired to
// both KBD_0 and KBD_1) are constructed.
func (d *DII) SetDevice(deviceNo int, dev *device) {
	d.devices[deviceNo] = dev
}

func isValidFD(p *PCB, fd int) bool {
	return fd >= 0 && fd < FDTableSize && p.fdTable[fd] != nil
}

// Open finds a free fd, invokes the device's open, and wires up the
// process's fd table on success.
func (d *DII) Open(p *PCB, deviceNo int) int32 {
	if deviceNo < 0 || deviceNo >= DeviceTableSize {
		return -1
	}
	fd := -1
	for i := 0; i < FDTableSize; i++ {
		if p.fdTable[i] == nil {
			fd = i
			break
		}
	}
	if fd == -1 {
		return -1
	}
	dev := d.devices[deviceNo]
	if dev.open(p, deviceNo) != 0 {
		return -1
	}
	p.fdTable[fd] = &openFile{dev: dev, deviceNo: deviceNo}
	return int32(fd)
}

func (d *DII) Close(p *PCB, fd int) int32 {
	if !isValidFD(p, fd) {
		return -1
	}
	of := p.fdTable[fd]
	if of.dev.close(p) != 0 {
		return -1
	}
	p.fdTable[fd] = nil
	return 0
}

func (d *DII) Write(p *PCB, fd int, buf []byte) int32 {
	if buf == nil || !isValidFD(p, fd) {
		return -1
	}
	return p.fdTable[fd].dev.write(p, buf)
}

// Read returns the byte count / EOF(0) / error(-1) / block(-2) contract,
// plus the bytes actually copied when the call completes synchronously.
func (d *DII) Read(p *PCB, fd int, buflen int) (int32, []byte) {
	if buflen <= 0 || !isValidFD(p, fd) {
		return -1, nil
	}
	return p.fdTable[fd].dev.read(p, buflen)
}

func (d *DII) Ioctl(p *PCB, fd int, command int, args any) int32 {
	if !isValidFD(p, fd) {
		return -1
	}
	return p.fdTable[fd].dev.ioctl(p, command, args)
}

// CloseAll is called when a process exits, releasing every fd it still
// holds open without requiring it to have called sysclose itself.
func (d *DII) CloseAll(p *PCB) {
	for fd := range p.fdTable {
		if p.fdTable[fd] != nil {
			p.fdTable[fd].dev.close(p)
			p.fdTable[fd] = nil
		}
	}
}
