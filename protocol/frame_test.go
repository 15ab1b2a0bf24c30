package protocol

import "testing"

func encodeTestFrame(t *testing.T, seq uint8, values ...uint32) []byte {
	t.Helper()
	out := NewScratchOutput()
	err := EncodeFrame(out, seq, func(o OutputBuffer) {
		for _, v := range values {
			EncodeVLQUint(o, v)
		}
	})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	return append([]byte(nil), out.Result()...)
}

func TestEncodeFrameLayout(t *testing.T) {
	frame := encodeTestFrame(t, 3, 1, 2)

	if int(frame[MessagePositionLen]) != len(frame) {
		t.Errorf("Expected length byte %d, got %d", len(frame), frame[MessagePositionLen])
	}
	if frame[MessagePositionSeq] != MessageDest|3 {
		t.Errorf("Expected seq byte 0x13, got 0x%02X", frame[MessagePositionSeq])
	}
	if frame[len(frame)-1] != MessageValueSync {
		t.Errorf("Expected trailing sync byte, got 0x%02X", frame[len(frame)-1])
	}
	crc := CRC16(frame[:len(frame)-MessageTrailerSize])
	if frame[len(frame)-3] != uint8(crc>>8) || frame[len(frame)-2] != uint8(crc) {
		t.Errorf("CRC bytes mismatch: expected %04X", crc)
	}
}

func TestEncodeFrameTooLong(t *testing.T) {
	out := NewScratchOutput()
	out.Output([]byte{0xAA})
	err := EncodeFrame(out, 0, func(o OutputBuffer) {
		o.Output(make([]byte, MessageLengthMax))
	})
	if err != ErrFrameTooLong {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
	if out.CurPosition() != 1 {
		t.Errorf("Failed encode should leave prior data, position %d", out.CurPosition())
	}
}

func TestEncodeFrameNoSpace(t *testing.T) {
	out := NewScratchOutput()
	out.Output(make([]byte, MessageMax-4))
	err := EncodeFrame(out, 0, func(o OutputBuffer) {
		EncodeVLQUint(o, 5)
	})
	if err != ErrNoSpace {
		t.Errorf("Expected ErrNoSpace, got %v", err)
	}
	if out.CurPosition() != MessageMax-4 {
		t.Errorf("Failed encode should be rolled back, position %d", out.CurPosition())
	}
}

func TestFrameDecoderRoundTrip(t *testing.T) {
	dec := NewFrameDecoder(256)
	dec.Write(encodeTestFrame(t, 1, 10))
	dec.Write(encodeTestFrame(t, 2, 20, 30))

	seq, payload, ok := dec.Next()
	if !ok || seq != 1 {
		t.Fatalf("Expected frame with seq 1, got ok=%v seq=%d", ok, seq)
	}
	v, _ := DecodeVLQUint(&payload)
	if v != 10 {
		t.Errorf("Expected payload 10, got %d", v)
	}

	seq, payload, ok = dec.Next()
	if !ok || seq != 2 {
		t.Fatalf("Expected frame with seq 2, got ok=%v seq=%d", ok, seq)
	}
	if len(payload) != 2 {
		t.Errorf("Expected 2 payload bytes, got %d", len(payload))
	}

	if _, _, ok := dec.Next(); ok {
		t.Error("Expected no more frames")
	}
	if dec.Errors() != 0 {
		t.Errorf("Expected 0 errors, got %d", dec.Errors())
	}
}

func TestFrameDecoderSplitWrites(t *testing.T) {
	dec := NewFrameDecoder(256)
	frame := encodeTestFrame(t, 5, 1000000)

	for i := 0; i < len(frame)-1; i++ {
		dec.Write(frame[i : i+1])
		if _, _, ok := dec.Next(); ok {
			t.Fatalf("Frame returned after only %d bytes", i+1)
		}
	}
	dec.Write(frame[len(frame)-1:])
	if seq, _, ok := dec.Next(); !ok || seq != 5 {
		t.Errorf("Expected frame with seq 5 once complete, got ok=%v seq=%d", ok, seq)
	}
}

func TestFrameDecoderResync(t *testing.T) {
	dec := NewFrameDecoder(256)
	dec.Write([]byte{0x03, 0x55, 0x01, MessageValueSync})
	dec.Write(encodeTestFrame(t, 7, 42))

	seq, payload, ok := dec.Next()
	if !ok || seq != 7 {
		t.Fatalf("Expected frame with seq 7 after garbage, got ok=%v seq=%d", ok, seq)
	}
	v, _ := DecodeVLQUint(&payload)
	if v != 42 {
		t.Errorf("Expected payload 42, got %d", v)
	}
	if dec.Errors() != 1 {
		t.Errorf("Expected 1 error, got %d", dec.Errors())
	}
}

func TestFrameDecoderBadCRC(t *testing.T) {
	dec := NewFrameDecoder(256)
	bad := encodeTestFrame(t, 1, 9)
	bad[MessageHeaderSize] ^= 0x01
	dec.Write(bad)
	dec.Write(encodeTestFrame(t, 2, 9))

	seq, _, ok := dec.Next()
	if !ok || seq != 2 {
		t.Fatalf("Expected only the intact frame, got ok=%v seq=%d", ok, seq)
	}
	if dec.Errors() != 1 {
		t.Errorf("Expected 1 error, got %d", dec.Errors())
	}
}
