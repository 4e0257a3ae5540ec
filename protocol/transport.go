package protocol

import "sync/atomic"

// CommandHandler handles one decoded command. It consumes its own
// arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device side of the link: it parses host frames,
// acknowledges them and encodes responses.
type Transport struct {
	synced  uint32 // atomic bool
	nextSeq uint32 // atomic; expected host sequence, echoed in ACKs
	output  OutputBuffer
	handler CommandHandler

	resetCallback func()
	flushCallback func()
}

// NewTransport creates a synchronized transport expecting sequence 0x10
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		synced:  1,
		nextSeq: MessageDest,
		output:  output,
		handler: handler,
	}
}

// Receive consumes every complete frame in input
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	total := len(data)

	for len(data) > 0 {
		if !t.isSynced() {
			i := indexSync(data)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			t.setSynced(true)
			t.sendAck()
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		n, res := scanFrame(data)
		if res == scanIncomplete {
			break
		}
		if res == scanInvalid {
			t.setSynced(false)
			continue
		}

		seq := data[posSeq]
		payload := framePayload(data[:n])
		data = data[n:]

		expected := uint8(atomic.LoadUint32(&t.nextSeq))
		if seq == MessageDest && expected != MessageDest {
			// Host restarted its sequence
			expected = MessageDest
			atomic.StoreUint32(&t.nextSeq, MessageDest)
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}
		if seq == expected {
			atomic.StoreUint32(&t.nextSeq, uint32(nextSeq(seq)))
			_ = t.dispatch(payload)
		}
		// Sent for every frame; on a sequence mismatch it is the NAK.
		t.sendAck()
	}

	input.Pop(total - len(data))
}

// dispatch runs every command in a frame payload
func (t *Transport) dispatch(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.setSynced(false)
		}
	}()

	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			t.setSynced(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &payload); err != nil {
			return err
		}
	}
	return nil
}

// sendAck writes an empty frame carrying the next expected sequence
func (t *Transport) sendAck() {
	writeFrame(t.output, uint8(atomic.LoadUint32(&t.nextSeq)), nil)
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// SendCommand encodes a response frame: cmdID followed by args
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	writeFrame(t.output, uint8(atomic.LoadUint32(&t.nextSeq)), func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
}

// Reset returns to the power-on state
func (t *Transport) Reset() {
	t.setSynced(true)
	atomic.StoreUint32(&t.nextSeq, MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback is called when the host restarts its sequence
func (t *Transport) SetResetCallback(callback func()) { t.resetCallback = callback }

// SetFlushCallback is called after every ACK to push it out immediately
func (t *Transport) SetFlushCallback(callback func()) { t.flushCallback = callback }

func (t *Transport) isSynced() bool { return atomic.LoadUint32(&t.synced) != 0 }

func (t *Transport) setSynced(v bool) {
	var x uint32
	if v {
		x = 1
	}
	atomic.StoreUint32(&t.synced, x)
}

func indexSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i
		}
	}
	return -1
}
