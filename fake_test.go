package spiprobe

import (
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// event is one thing that happened on the fake hardware.
type event struct {
	level gpio.Level
	tx    []byte // nil for pin events
	at    time.Time
}

// recorder collects pin and bus events from several fakes in order.
type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.at = time.Now()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) levels() []gpio.Level {
	var out []gpio.Level
	for _, e := range r.snapshot() {
		if e.tx == nil {
			out = append(out, e.level)
		}
	}
	return out
}

func (r *recorder) transfers() [][]byte {
	var out [][]byte
	for _, e := range r.snapshot() {
		if e.tx != nil {
			out = append(out, e.tx)
		}
	}
	return out
}

type fakePin struct {
	rec *recorder
	err error
}

func (p *fakePin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.rec.add(event{level: l})
	return nil
}

// fakeConn answers every transfer with 1, 2, 3... unless reply is set.
type fakeConn struct {
	rec   *recorder
	reply func(w []byte) []byte
	err   error
}

func (c *fakeConn) String() string      { return "fake SPI" }
func (c *fakeConn) Duplex() conn.Duplex { return conn.Full }

func (c *fakeConn) Tx(w, r []byte) error {
	if c.err != nil {
		return c.err
	}
	if c.rec != nil {
		c.rec.add(event{tx: append([]byte{}, w...)})
	}
	if c.reply != nil {
		copy(r, c.reply(w))
		return nil
	}
	for i := range r {
		r[i] = byte(i + 1)
	}
	return nil
}

func (c *fakeConn) TxPackets(p []spi.Packet) error {
	for _, pkt := range p {
		if err := c.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

func newFakeDevice() (*Device, *recorder) {
	rec := &recorder{}
	return NewDevice(&fakePin{rec: rec}, &fakeConn{rec: rec}), rec
}
