// Package protocol implements the framed telemetry link between the firmware
// and the host monitor. Framing follows the Klipper wire format.
package protocol

// Version is the telemetry protocol version reported in Identify.
const Version = 1

// Frame layout: [len][seq][payload...][crc hi][crc lo][sync]
const (
	MessageMax         = 128 // Scratch buffer size; holds a few frames
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	MessageSeqMask = 0x0F
)

// Message IDs (firmware -> host)
const (
	MsgIdentify = 0 // class=%c cpu_hz=%u divider=%hu overflow_period=%hu version=%c
	MsgClock    = 1 // millis=%u micros=%u overflows=%u strays=%u drops=%u
	MsgPinEvent = 2 // pin=%c seq=%u millis=%u
)
