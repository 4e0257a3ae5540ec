package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrTransportClosed is returned by requests made after Close
var ErrTransportClosed = errors.New("transport closed")

// Response is one decoded response frame
type Response struct {
	ID   uint16
	Args []byte // Encoded arguments after the id
}

// HostTransport is the host side of the link. A background goroutine
// reads frames off the port; requests are serialized.
type HostTransport struct {
	port io.ReadWriteCloser

	mu  sync.Mutex // One request at a time
	seq uint8

	in        *FifoBuffer
	synced    bool // Read loop only
	acks      chan uint8
	responses chan Response

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewHostTransport starts reading from port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		seq:       MessageDest,
		in:        NewFifoBuffer(512),
		synced:    true,
		acks:      make(chan uint8, 4),
		responses: make(chan Response, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Request sends one command and waits for its ACK and for the first
// response whose id is in want. With no want ids it returns after the ACK.
func (t *HostTransport) Request(ctx context.Context, cmdID uint16, args func(OutputBuffer), want ...uint16) (Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("command %d: %w", cmdID, err)
	}
	t.drain()
	out := NewScratchOutput()
	writeFrame(out, t.seq, func(o OutputBuffer) {
		EncodeVLQUint(o, uint32(cmdID))
		if args != nil {
			args(o)
		}
	})
	if _, err := t.port.Write(out.Result()); err != nil {
		return Response{}, fmt.Errorf("write command %d: %w", cmdID, err)
	}

	acked := false
	var resp Response
	found := len(want) == 0
	for !acked || !found {
		select {
		case seq := <-t.acks:
			if seq == nextSeq(t.seq) {
				t.seq = seq
				acked = true
			}
		case r := <-t.responses:
			if !found && containsID(want, r.ID) {
				resp = r
				found = true
			}
		case <-t.stop:
			return Response{}, ErrTransportClosed
		case <-ctx.Done():
			return Response{}, fmt.Errorf("command %d: %w", cmdID, ctx.Err())
		}
	}
	return resp, nil
}

// Close stops the read loop and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.stop)
		err = t.port.Close()
		<-t.done
	})
	return err
}

// drain drops frames left over from an earlier, abandoned request
func (t *HostTransport) drain() {
	for {
		select {
		case <-t.acks:
		case <-t.responses:
		default:
			return
		}
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.done)

	buf := make([]byte, 128)
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.in.Write(buf[:n])
			t.parse()
		}
		if err != nil || n == 0 {
			// Serial read timeouts surface as io.EOF or an empty read
			time.Sleep(2 * time.Millisecond)
		}
	}
}

// parse splits buffered bytes into ACKs and responses
func (t *HostTransport) parse() {
	data := t.in.Data()
	total := len(data)

	for len(data) > 0 {
		if !t.synced {
			i := indexSync(data)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			t.synced = true
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
			t.synced = false
			continue
		}

		seq := data[posSeq]
		payload := append([]byte(nil), framePayload(data[:n])...)
		data = data[n:]

		if len(payload) == 0 {
			t.deliverAck(seq)
			continue
		}
		// One response per frame; the device never batches.
		if id, err := DecodeVLQUint(&payload); err == nil {
			t.deliverResponse(Response{ID: uint16(id), Args: payload})
		}
	}

	t.in.Pop(total - len(data))
}

func (t *HostTransport) deliverAck(seq uint8) {
	select {
	case t.acks <- seq:
	default:
	}
}

func (t *HostTransport) deliverResponse(r Response) {
	select {
	case t.responses <- r:
	default:
		// Drop the oldest
		select {
		case <-t.responses:
		default:
		}
		t.responses <- r
	}
}

func containsID(ids []uint16, id uint16) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
