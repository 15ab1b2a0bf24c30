package core

// itoa converts an integer to a string without using the fmt package.
func itoa(n int) string {
	if n < 0 {
		// Widen before negating so the most negative int survives.
		return "-" + string(appendUint(nil, uint64(-int64(n))))
	}
	return string(appendUint(nil, uint64(n)))
}

// utoa converts an unsigned integer to a string.
func utoa(n uint32) string {
	return string(appendUint(nil, uint64(n)))
}

// appendUint appends the decimal form of n to buf.
func appendUint(buf []byte, n uint64) []byte {
	var tmp [20]byte
	pos := len(tmp)
	for {
		pos--
		tmp[pos] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(buf, tmp[pos:]...)
}

// hex8 formats a byte as two hex digits, used for bit masks in debug output.
func hex8(v uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{'0', 'x', digits[v>>4], digits[v&0x0F]})
}
