package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// maxVLQBytes bounds a 32-bit VLQ value.
const maxVLQBytes = 5

// EncodeVLQInt encodes a signed integer in Klipper's VLQ format: 7 bits per
// byte, most significant first, continuation in bit 7, and the top bits of
// the first byte sign-extended on decode.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var tmp [maxVLQBytes]byte
	n := 0
	if v < -(1<<26) || v >= 3<<26 {
		tmp[n] = byte(v>>28&0x7F) | 0x80
		n++
	}
	if v < -(1<<19) || v >= 3<<19 {
		tmp[n] = byte(v>>21&0x7F) | 0x80
		n++
	}
	if v < -(1<<12) || v >= 3<<12 {
		tmp[n] = byte(v>>14&0x7F) | 0x80
		n++
	}
	if v < -(1<<5) || v >= 3<<5 {
		tmp[n] = byte(v>>7&0x7F) | 0x80
		n++
	}
	tmp[n] = byte(v & 0x7F)
	output.Output(tmp[:n+1])
}

// EncodeVLQUint encodes an unsigned integer; values above 2^31 travel as
// their two's complement and decode back unchanged.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt decodes a VLQ signed integer and advances data past it.
func DecodeVLQInt(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32(buf[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	i := 1
	for c&0x80 != 0 {
		if i >= len(buf) {
			return 0, ErrBufferTooSmall
		}
		if i >= maxVLQBytes {
			return 0, ErrInvalidVLQ
		}
		c = uint32(buf[i])
		i++
		v = v<<7 | c&0x7F
	}
	*data = buf[i:]
	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer
func DecodeVLQUint(data *[]byte) (uint32, error) {
	val, err := DecodeVLQInt(data)
	return uint32(val), err
}
