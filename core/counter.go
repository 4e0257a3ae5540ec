package core

// MaxStableReadAttempts bounds the stable-read loop. Real hardware settles
// within one extra read; hitting the bound means the counter is broken.
const MaxStableReadAttempts = 16

// ClockSource is what the timer service needs from a clock: the current
// tick count.
type ClockSource interface {
	Read() uint32
}

// StableCounter reads the free-running counter across the asynchronous
// 32 kHz clock domain. It holds no mutable state and is safe to call from
// both the main and the interrupt context.
type StableCounter struct {
	regs RTCRegisters
}

// NewStableCounter creates a reader over the given registers
func NewStableCounter(regs RTCRegisters) *StableCounter {
	return &StableCounter{regs: regs}
}

// ReadChecked reads the counter until two consecutive reads agree
func (c *StableCounter) ReadChecked() (uint32, error) {
	prev := c.regs.ReadCounter()
	for i := 1; i < MaxStableReadAttempts; i++ {
		cur := c.regs.ReadCounter()
		if cur == prev {
			return cur, nil
		}
		prev = cur
	}
	return prev, ErrHardwareInconsistency
}

// Read returns the current tick count. A counter that never settles is a
// hardware fault and goes to the platform fault path.
func (c *StableCounter) Read() uint32 {
	v, err := c.ReadChecked()
	if err != nil {
		Fault(err)
	}
	return v
}
