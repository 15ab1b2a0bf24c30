package protocol

import "errors"

var ErrUnknownMessage = errors.New("unknown message id")

// Message is a decoded telemetry payload.
type Message interface {
	MsgID() uint32
}

// Identify describes the firmware's timer plan. Sent once at start.
type Identify struct {
	Class          uint8
	CPUFrequency   uint32
	Divider        uint16
	OverflowPeriod uint16
	Version        uint8
}

// ClockReport is a periodic clock snapshot.
type ClockReport struct {
	Millis    uint32
	Micros    uint32
	Overflows uint32
	Strays    uint32 // pending flags cleared with no callback attached
	Drops     uint32 // pin events lost to a full queue
}

// PinEvent reports one serviced pin interrupt.
type PinEvent struct {
	Pin    uint8
	Seq    uint32
	Millis uint32
}

func (Identify) MsgID() uint32    { return MsgIdentify }
func (ClockReport) MsgID() uint32 { return MsgClock }
func (PinEvent) MsgID() uint32    { return MsgPinEvent }

// Encode writes the message ID and fields.
func (m Identify) Encode(out OutputBuffer) {
	EncodeVLQUint(out, MsgIdentify)
	EncodeVLQUint(out, uint32(m.Class))
	EncodeVLQUint(out, m.CPUFrequency)
	EncodeVLQUint(out, uint32(m.Divider))
	EncodeVLQUint(out, uint32(m.OverflowPeriod))
	EncodeVLQUint(out, uint32(m.Version))
}

// Encode writes the message ID and fields.
func (m ClockReport) Encode(out OutputBuffer) {
	EncodeVLQUint(out, MsgClock)
	EncodeVLQUint(out, m.Millis)
	EncodeVLQUint(out, m.Micros)
	EncodeVLQUint(out, m.Overflows)
	EncodeVLQUint(out, m.Strays)
	EncodeVLQUint(out, m.Drops)
}

// Encode writes the message ID and fields.
func (m PinEvent) Encode(out OutputBuffer) {
	EncodeVLQUint(out, MsgPinEvent)
	EncodeVLQUint(out, uint32(m.Pin))
	EncodeVLQUint(out, m.Seq)
	EncodeVLQUint(out, m.Millis)
}

// Decode parses one frame payload.
func Decode(payload []byte) (Message, error) {
	data := payload
	id, err := DecodeVLQUint(&data)
	if err != nil {
		return nil, err
	}
	var v [5]uint32
	var n int
	switch id {
	case MsgIdentify:
		n = 5
	case MsgClock:
		n = 5
	case MsgPinEvent:
		n = 3
	default:
		return nil, ErrUnknownMessage
	}
	for i := 0; i < n; i++ {
		if v[i], err = DecodeVLQUint(&data); err != nil {
			return nil, err
		}
	}
	switch id {
	case MsgIdentify:
		return Identify{
			Class:          uint8(v[0]),
			CPUFrequency:   v[1],
			Divider:        uint16(v[2]),
			OverflowPeriod: uint16(v[3]),
			Version:        uint8(v[4]),
		}, nil
	case MsgClock:
		return ClockReport{Millis: v[0], Micros: v[1], Overflows: v[2], Strays: v[3], Drops: v[4]}, nil
	default:
		return PinEvent{Pin: uint8(v[0]), Seq: v[1], Millis: v[2]}, nil
	}
}
