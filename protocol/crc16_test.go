package protocol

import "testing"

func TestCRC16CheckValue(t *testing.T) {
	// Standard check input for CRC-16/MCRF4XX, which this variant matches.
	if got := CRC16([]byte("123456789")); got != 0x6F91 {
		t.Errorf("Expected CRC 0x6F91, got 0x%04X", got)
	}
}

func TestCRC16Empty(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("Expected 0xFFFF for empty input, got 0x%04X", got)
	}
}

func TestCRC16Different(t *testing.T) {
	data1 := []byte{0x01, 0x02, 0x03}
	data2 := []byte{0x01, 0x02, 0x04}

	crc1 := CRC16(data1)
	crc2 := CRC16(data2)

	if crc1 == crc2 {
		t.Errorf("CRC16 collision: both inputs produced %04X", crc1)
	}
}
