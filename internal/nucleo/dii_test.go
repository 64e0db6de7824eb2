package nucleo

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestDII() *DII {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewDII(log.WithField("test", "dii"))
}

// fakeDevice counts calls and lets a test control open/close outcomes,
// standing in for a real driver's vtable.
type fakeDevice struct {
	openResult int32
	closes     int
	writes     [][]byte
	reads      int
}

func (f *fakeDevice) asDevice() *device {
	return &device{
		name:  "fake",
		open:  func(p *PCB, no int) int32 { return f.openResult },
		close: func(p *PCB) int32 { f.closes++; return 0 },
		read:  func(p *PCB, buflen int) (int32, []byte) { f.reads++; return int32(buflen), make([]byte, buflen) },
		write: func(p *PCB, buf []byte) int32 { f.writes = append(f.writes, buf); return int32(len(buf)) },
		ioctl: func(p *PCB, command int, args any) int32 { return 0 },
	}
}

func TestDIIOpenAssignsLowestFreeFD(t *testing.T) {
	d := newTestDII()
	fd0 := (&fakeDevice{}).asDevice()
	d.SetDevice(0, fd0)
	p := &PCB{}

	fd := d.Open(p, 0)
	if fd != 0 {
		t.Fatalf("Open() first fd = %d, want 0", fd)
	}
	fd2 := d.Open(p, 0)
	if fd2 != 1 {
		t.Fatalf("Open() second fd = %d, want 1", fd2)
	}
}

func TestDIIOpenFailsWhenFDTableFull(t *testing.T) {
	d := newTestDII()
	d.SetDevice(0, (&fakeDevice{}).asDevice())
	p := &PCB{}

	for i := 0; i < FDTableSize; i++ {
		if fd := d.Open(p, 0); fd < 0 {
			t.Fatalf("Open() call %d failed unexpectedly: %d", i, fd)
		}
	}
	if fd := d.Open(p, 0); fd != -1 {
		t.Fatalf("Open() with a full fd table = %d, want -1", fd)
	}
}

func TestDIIOpenPropagatesDeviceFailure(t *testing.T) {
	d := newTestDII()
	fake := &fakeDevice{openResult: -1}
	d.SetDevice(0, fake.asDevice())
	p := &PCB{}

	if fd := d.Open(p, 0); fd != -1 {
		t.Fatalf("Open() with a failing device.open() = %d, want -1", fd)
	}
	if p.fdTable[0] != nil {
		t.Fatalf("fd table entry installed despite a failed device open")
	}
}

func TestDIIRejectsInvalidFDsAndDeviceNumbers(t *testing.T) {
	d := newTestDII()
	d.SetDevice(0, (&fakeDevice{}).asDevice())
	p := &PCB{}

	if fd := d.Open(p, DeviceTableSize); fd != -1 {
		t.Fatalf("Open() with an out-of-range device number = %d, want -1", fd)
	}
	if code := d.Write(p, 3, []byte("x")); code != -1 {
		t.Fatalf("Write() on an unopened fd = %d, want -1", code)
	}
	if code := d.Close(p, -1); code != -1 {
		t.Fatalf("Close() on a negative fd = %d, want -1", code)
	}
	if code, data := d.Read(p, 0, 0); code != -1 || data != nil {
		t.Fatalf("Read() with buflen 0 = (%d, %v), want (-1, nil)", code, data)
	}
}

func TestDIICloseAllReleasesEveryOpenFD(t *testing.T) {
	d := newTestDII()
	fake := &fakeDevice{}
	d.SetDevice(0, fake.asDevice())
	p := &PCB{}

	d.Open(p, 0)
	d.Open(p, 0)

	d.CloseAll(p)
	if fake.closes != 2 {
		t.Fatalf("CloseAll() invoked device.close() %d times, want 2", fake.closes)
	}
	for i, of := range p.fdTable {
		if of != nil {
			t.Fatalf("fd %d still populated after CloseAll()", i)
		}
	}
}

func TestDIIWriteRejectsNilBuffer(t *testing.T) {
	d := newTestDII()
	d.SetDevice(0, (&fakeDevice{}).asDevice())
	p := &PCB{}
	fd := d.Open(p, 0)

	if code := d.Write(p, int(fd), nil); code != -1 {
		t.Fatalf("Write() with a nil buffer = %d, want -1", code)
	}
}
