package protocol

import "errors"

var (
	ErrFrameTooLong = errors.New("frame exceeds maximum length")
	ErrNoSpace      = errors.New("output buffer full")
)

// Truncate drops everything written after pos.
func (s *ScratchOutput) Truncate(pos int) {
	if pos >= 0 && pos < s.pos {
		s.pos = pos
	}
}

// EncodeFrame appends one frame to out. build writes the payload. On error
// nothing is appended.
func EncodeFrame(out *ScratchOutput, seq uint8, build func(output OutputBuffer)) error {
	start := out.CurPosition()
	out.Output([]byte{0, MessageDest | seq&MessageSeqMask})
	build(out)

	msgLen := out.CurPosition() - start + MessageTrailerSize
	if msgLen > MessageLengthMax {
		out.Truncate(start)
		return ErrFrameTooLong
	}
	out.Update(start+MessagePositionLen, uint8(msgLen))
	crc := CRC16(out.DataSince(start))
	out.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
	if out.Overflowed() {
		out.Truncate(start)
		return ErrNoSpace
	}
	return nil
}

// FrameDecoder splits a byte stream into verified frame payloads. After a
// bad length, destination, sync byte or CRC it discards input up to the
// next sync byte.
type FrameDecoder struct {
	fifo   *FifoBuffer
	frame  [MessageLengthMax]byte
	synced bool
	errors uint32
}

// NewFrameDecoder creates a decoder buffering up to capacity-1 bytes
func NewFrameDecoder(capacity int) *FrameDecoder {
	return &FrameDecoder{fifo: NewFifoBuffer(capacity), synced: true}
}

// Write feeds received bytes and returns how many were buffered
func (d *FrameDecoder) Write(p []byte) int {
	return d.fifo.Write(p)
}

// Free returns how many bytes Write can accept
func (d *FrameDecoder) Free() int {
	return d.fifo.Free()
}

// Errors returns the number of rejected frames
func (d *FrameDecoder) Errors() uint32 {
	return d.errors
}

// Next returns the next complete frame. The payload is valid until the
// following call.
func (d *FrameDecoder) Next() (seq uint8, payload []byte, ok bool) {
	f := d.fifo
	for !f.IsEmpty() {
		if !d.synced {
			b := f.Peek(0)
			f.Pop(1)
			if b == MessageValueSync {
				d.synced = true
			}
			continue
		}
		if f.Peek(0) == MessageValueSync {
			f.Pop(1)
			continue
		}
		if f.Available() < MessageLengthMin {
			return 0, nil, false
		}
		msgLen := int(f.Peek(MessagePositionLen))
		seq = f.Peek(MessagePositionSeq)
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax || seq&^MessageSeqMask != MessageDest {
			d.reject()
			continue
		}
		if f.Available() < msgLen {
			return 0, nil, false
		}
		f.CopyOut(d.frame[:], msgLen)
		if d.frame[msgLen-1] != MessageValueSync {
			d.reject()
			continue
		}
		crc := uint16(d.frame[msgLen-3])<<8 | uint16(d.frame[msgLen-2])
		if crc != CRC16(d.frame[:msgLen-MessageTrailerSize]) {
			d.reject()
			continue
		}
		f.Pop(msgLen)
		return seq & MessageSeqMask, d.frame[MessageHeaderSize : msgLen-MessageTrailerSize], true
	}
	return 0, nil, false
}

func (d *FrameDecoder) reject() {
	d.errors++
	d.synced = false
}
