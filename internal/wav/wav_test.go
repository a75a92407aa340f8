package wav

import (
	"errors"
	"testing"
	"time"
)

func TestParseRoundTrip(t *testing.T) {
	// One second of silence at 22050 Hz mono 16-bit.
	pcm := make([]byte, 22050*2)
	data := WrapRawPCM(pcm, 22050, 1, 16)

	info, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if info.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Channels = %d, want 1", info.Channels)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("BitsPerSample = %d, want 16", info.BitsPerSample)
	}
	if info.DataSize != len(pcm) {
		t.Errorf("DataSize = %d, want %d", info.DataSize, len(pcm))
	}
	if info.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", info.Duration())
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := Parse([]byte("RIFF")); !errors.Is(err, ErrTooShort) {
		t.Errorf("Parse() error = %v, want ErrTooShort", err)
	}
}

func TestParseNotWAV(t *testing.T) {
	data := make([]byte, HeaderSize)
	copy(data, "this is definitely not audio data at all....")
	if _, err := Parse(data); !errors.Is(err, ErrNotWAV) {
		t.Errorf("Parse() error = %v, want ErrNotWAV", err)
	}
}

func TestParseNonPCM(t *testing.T) {
	data := WrapRawPCM(make([]byte, 100), 22050, 1, 16)
	PutLE16(data[20:22], 3) // IEEE float
	if _, err := Parse(data); !errors.Is(err, ErrBadFormat) {
		t.Errorf("Parse() error = %v, want ErrBadFormat", err)
	}
}

func TestParseTruncatedBody(t *testing.T) {
	data := WrapRawPCM(make([]byte, 1000), 22050, 1, 16)
	truncated := data[:HeaderSize+100]

	info, err := Parse(truncated)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if info.DataSize != 100 {
		t.Errorf("DataSize = %d, want clamped to 100", info.DataSize)
	}
}

func TestGetPutLE(t *testing.T) {
	b := make([]byte, 4)
	PutLE32(b, 0xAABBCCDD)
	if got := GetLE32(b); got != 0xAABBCCDD {
		t.Errorf("GetLE32(PutLE32(x)) = %#x", got)
	}
	PutLE16(b, 0x1234)
	if got := GetLE16(b); got != 0x1234 {
		t.Errorf("GetLE16(PutLE16(x)) = %#x", got)
	}
}

func TestZeroByteRateDuration(t *testing.T) {
	var info Info
	if d := info.Duration(); d != 0 {
		t.Errorf("Duration() = %v, want 0", d)
	}
}
