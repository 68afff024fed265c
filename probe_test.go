package spiprobe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

var noDelay = Timing{}

var (
	hwCommand   = []byte{0xF0, 0x00, 0x00}
	zeroCommand = []byte{0, 0, 0, 0, 0, 0}
)

func TestIterateOneCycle(t *testing.T) {
	dev, rec := newFakeDevice()
	var out bytes.Buffer
	p := NewProber(dev, WithTiming(noDelay), WithOutput(&out))

	require.NoError(t, p.Iterate(context.Background()))

	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High}, rec.levels())
	assert.Equal(t, [][]byte{hwCommand, zeroCommand}, rec.transfers())

	want := "\nReset FPGA Fabric Logic\n" +
		"Issue Hardware Protocol Command, 3 Bytes\n" +
		"[1 2 3]\n" +
		"Issue Zero Command, 3+ Bytes\n" +
		"[1 2 3 4 5 6]\n"
	assert.Equal(t, want, out.String())
}

func TestIterateResetPrecedesTransfers(t *testing.T) {
	dev, rec := newFakeDevice()
	p := NewProber(dev, WithTiming(noDelay), WithOutput(io.Discard))

	require.NoError(t, p.Iterate(context.Background()))

	ev := rec.snapshot()
	require.Len(t, ev, 4)
	assert.Nil(t, ev[0].tx)
	assert.Equal(t, gpio.Low, ev[0].level)
	assert.Nil(t, ev[1].tx)
	assert.Equal(t, gpio.High, ev[1].level)
	assert.Len(t, ev[2].tx, 3)
	assert.Len(t, ev[3].tx, 6)
}

func TestIterateHexFormat(t *testing.T) {
	rec := &recorder{}
	conn := &fakeConn{rec: rec, reply: func(w []byte) []byte {
		r := make([]byte, len(w))
		for i := range w {
			r[i] = ^w[i]
		}
		return r
	}}
	var out bytes.Buffer
	p := NewProber(NewDevice(&fakePin{rec: rec}, conn),
		WithTiming(noDelay), WithOutput(&out), WithFormat(FormatHex))

	require.NoError(t, p.Iterate(context.Background()))
	assert.Contains(t, out.String(), "\n0F FF FF\n")
	assert.Contains(t, out.String(), "\nFF FF FF FF FF FF\n")
}

func TestRunIterationLimit(t *testing.T) {
	dev, rec := newFakeDevice()
	p := NewProber(dev, WithTiming(noDelay), WithOutput(io.Discard), WithIterations(3))

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []gpio.Level{
		gpio.Low, gpio.High,
		gpio.Low, gpio.High,
		gpio.Low, gpio.High,
	}, rec.levels())

	txs := rec.transfers()
	require.Len(t, txs, 6)
	for i, tx := range txs {
		if i%2 == 0 {
			assert.Equal(t, hwCommand, tx)
		} else {
			assert.Equal(t, zeroCommand, tx)
		}
	}
}

func TestRunUntilCancelled(t *testing.T) {
	dev, rec := newFakeDevice()
	timing := Timing{ResetHold: time.Millisecond, ReleaseHold: time.Millisecond, CommandHold: time.Millisecond}
	p := NewProber(dev, WithTiming(timing), WithOutput(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	const iterations = 5
	require.Eventually(t, func() bool {
		return len(rec.transfers()) >= 2*iterations
	}, 5*time.Second, time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("loop returned on its own: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestRunCancelDuringHold(t *testing.T) {
	dev, rec := newFakeDevice()
	p := NewProber(dev, WithOutput(io.Discard)) // default holds are seconds long

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Run(ctx))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []gpio.Level{gpio.Low}, rec.levels())
	assert.Empty(t, rec.transfers())
}

func TestPulseTiming(t *testing.T) {
	const (
		low       = 30 * time.Millisecond
		high      = 60 * time.Millisecond
		tolerance = 100 * time.Millisecond
	)
	dev, rec := newFakeDevice()
	p := NewProber(dev, WithOutput(io.Discard), WithIterations(1),
		WithTiming(Timing{ResetHold: low, ReleaseHold: high}))

	require.NoError(t, p.Run(context.Background()))

	ev := rec.snapshot()
	require.Len(t, ev, 4)
	lowFor := ev[1].at.Sub(ev[0].at)
	highFor := ev[2].at.Sub(ev[1].at)
	assert.GreaterOrEqual(t, lowFor, low)
	assert.Less(t, lowFor, low+tolerance)
	assert.GreaterOrEqual(t, highFor, high)
	assert.Less(t, highFor, high+tolerance)
}

func TestRunTransferError(t *testing.T) {
	busErr := errors.New("spidev: input/output error")
	rec := &recorder{}
	p := NewProber(NewDevice(&fakePin{rec: rec}, &fakeConn{err: busErr}),
		WithTiming(noDelay), WithOutput(io.Discard))

	err := p.Run(context.Background())
	require.ErrorIs(t, err, busErr)
	assert.Contains(t, err.Error(), "iteration 1")
	assert.Contains(t, err.Error(), "Hardware Protocol Command")
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High}, rec.levels())
}

func TestRunResetError(t *testing.T) {
	pinErr := errors.New("permission denied")
	p := NewProber(NewDevice(&fakePin{err: pinErr}, &fakeConn{}),
		WithTiming(noDelay), WithOutput(io.Discard))

	err := p.Run(context.Background())
	require.ErrorIs(t, err, pinErr)
	assert.Contains(t, err.Error(), "assert reset")
}

// shortTarget drops the last byte of every response.
type shortTarget struct{}

func (shortTarget) ResetFPGA(gpio.Level) error { return nil }
func (shortTarget) Tx(w []byte) ([]byte, error) {
	return make([]byte, len(w)-1), nil
}

func TestTransferLengthMismatch(t *testing.T) {
	p := NewProber(shortTarget{}, WithOutput(io.Discard))

	_, err := p.Transfer(Commands()[0])
	var short *ShortTransferError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 3, short.Sent)
	assert.Equal(t, 2, short.Received)
}

func TestTransferResponseLength(t *testing.T) {
	dev, _ := newFakeDevice()
	p := NewProber(dev)
	for _, cmd := range Commands() {
		resp, err := p.Transfer(cmd)
		require.NoError(t, err)
		assert.Len(t, resp, len(cmd.Payload), cmd.Name)
	}
}

func TestCommandsAreFixed(t *testing.T) {
	cmds := Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, hwCommand, cmds[0].Payload)
	assert.Equal(t, zeroCommand, cmds[1].Payload)

	cmds[0].Payload[0] = 0x00
	assert.Equal(t, hwCommand, Commands()[0].Payload)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("HEX")
	require.NoError(t, err)
	assert.Equal(t, FormatHex, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatDec, f)

	_, err = ParseFormat("octal")
	assert.Error(t, err)
}
