package protocol

const (
	MessageLengthMin = MessageHeader + MessageTrailer
	MessageLengthMax = 64
	MessageValueSync = 0x7E
	MessageDest      = 0x10

	posLen = 0
	posSeq = 1
)

type scanResult uint8

const (
	scanIncomplete scanResult = iota // Need more bytes
	scanValid                        // A full frame of the returned length
	scanInvalid                      // Garbage at the front, resync
)

// scanFrame checks whether data starts with a well formed frame
func scanFrame(data []byte) (int, scanResult) {
	if len(data) < MessageLengthMin {
		return 0, scanIncomplete
	}
	n := int(data[posLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return 0, scanInvalid
	}
	if data[posSeq]&^MessageSeqMask != MessageDest {
		return 0, scanInvalid
	}
	if len(data) < n {
		return 0, scanIncomplete
	}
	if data[n-1] != MessageValueSync {
		return 0, scanInvalid
	}
	crc := uint16(data[n-3])<<8 | uint16(data[n-2])
	if crc != CRC16(data[:n-MessageTrailer]) {
		return 0, scanInvalid
	}
	return n, scanValid
}

// framePayload returns the bytes between header and trailer
func framePayload(frame []byte) []byte {
	return frame[MessageHeader : len(frame)-MessageTrailer]
}

// nextSeq returns the sequence byte following seq
func nextSeq(seq uint8) uint8 {
	return (seq+1)&MessageSeqMask | MessageDest
}

// writeFrame writes one frame with seq around whatever body outputs
func writeFrame(out OutputBuffer, seq uint8, body func(OutputBuffer)) {
	start := out.CurPosition()
	out.Output([]byte{0, seq})
	if body != nil {
		body(out)
	}
	out.Update(start, uint8(len(out.DataSince(start))+MessageTrailer))
	crc := CRC16(out.DataSince(start))
	out.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}
