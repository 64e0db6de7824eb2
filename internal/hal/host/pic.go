package host

import (
	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/hal"
)

// PIC is a trivial hal.InterruptController: it has no real interrupt lines
// to re-enable, it just counts and logs, standing in for the 8259's
// end_of_intr() OCW2 write.
type PIC struct {
	log    *logrus.Entry
	counts map[hal.RequestKind]uint64
}

func NewPIC(log *logrus.Entry) *PIC {
	return &PIC{log: log, counts: make(map[hal.RequestKind]uint64)}
}

func (p *PIC) EndOfInterrupt(kind hal.RequestKind) {
	p.counts[kind]++
	p.log.WithField("kind", kind).Trace("end of interrupt")
}
