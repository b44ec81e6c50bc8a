// Package device implements the 8080 I/O model: one fire-and-forget
// output channel and one non-blocking input channel per port, plus the
// console device that consumes the traditional teletype output port.
package device

// Channel is one direction of a port's traffic. OUT writes are
// fire-and-forget: if the consumer isn't keeping up, the byte is simply
// dropped rather than blocking the CPU. IN reads are non-blocking: if
// nothing has been written, the CPU sees 0xFF, the floating-bus value a
// disconnected 8080 input port reads as.
type Channel struct {
	ch  chan byte
	eot byte
}

// NewChannel creates a buffered byte channel. eotByte is the sentinel sent
// to every registered output channel when the CPU executes HLT, so a
// blocked consumer goroutine can observe the halt and return.
func NewChannel(buf int, eotByte byte) *Channel {
	return &Channel{ch: make(chan byte, buf), eot: eotByte}
}

// Send writes a byte without blocking; if the channel's buffer is full
// (no one is draining it) the byte is dropped.
func (c *Channel) Send(v byte) {
	select {
	case c.ch <- v:
	default:
	}
}

// SendEOT signals end-of-transmission to a consumer goroutine blocked in
// Recv.
func (c *Channel) SendEOT() {
	select {
	case c.ch <- c.eot:
	default:
	}
}

// TryRecv reads a byte without blocking, returning 0xFF if none is
// available.
func (c *Channel) TryRecv() byte {
	select {
	case v := <-c.ch:
		return v
	default:
		return 0xff
	}
}

// Recv blocks until a byte is available. Used by device-side consumer
// goroutines (the console), never by the CPU's IN instruction.
func (c *Channel) Recv() byte {
	return <-c.ch
}

// Bus wires the 8080's 256 I/O ports to their output and input channels.
// A port with no registered channel reads as 0xFF and discards writes.
type Bus struct {
	Out [256]*Channel
	In  [256]*Channel
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) OUT(port byte, v byte) {
	if d := b.Out[port]; d != nil {
		d.Send(v)
	}
}

func (b *Bus) IN(port byte) byte {
	if d := b.In[port]; d != nil {
		return d.TryRecv()
	}
	return 0xff
}

// HaltAll sends EOT to every registered output channel, releasing any
// consumer goroutine blocked waiting for more bytes.
func (b *Bus) HaltAll() {
	for _, d := range b.Out {
		if d != nil {
			d.SendEOT()
		}
	}
}
