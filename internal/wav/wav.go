// Package wav provides utilities for WAV audio file handling.
package wav

import (
	"errors"
	"fmt"
	"time"
)

// WAV format constants.
const (
	// HeaderSize is the size of a standard WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1
)

// Errors returned by Parse.
var (
	ErrTooShort  = errors.New("data shorter than a WAV header")
	ErrNotWAV    = errors.New("missing RIFF/WAVE markers")
	ErrBadFormat = errors.New("unsupported audio format")
)

// Info describes the audio carried by a WAV file, read from its header.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int
}

// Duration returns the playing time described by the header.
func (i Info) Duration() time.Duration {
	byteRate := i.SampleRate * i.Channels * i.BitsPerSample / 8
	if byteRate == 0 {
		return 0
	}
	return time.Duration(float64(i.DataSize) / float64(byteRate) * float64(time.Second))
}

// Parse reads the standard 44-byte header of b and returns the audio
// parameters. Downloaded files are probed with this before being reported
// to the user; a truncated or non-WAV body means the download went wrong.
func Parse(b []byte) (Info, error) {
	if len(b) < HeaderSize {
		return Info{}, ErrTooShort
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Info{}, ErrNotWAV
	}
	if string(b[12:16]) != "fmt " {
		return Info{}, ErrNotWAV
	}
	if format := GetLE16(b[20:22]); format != FormatPCM {
		return Info{}, fmt.Errorf("%w: code %d", ErrBadFormat, format)
	}

	info := Info{
		Channels:      int(GetLE16(b[22:24])),
		SampleRate:    int(GetLE32(b[24:28])),
		BitsPerSample: int(GetLE16(b[34:36])),
		DataSize:      int(GetLE32(b[40:44])),
	}

	// The data subchunk size may overrun a truncated body; clamp so the
	// duration reflects what was actually received.
	if avail := len(b) - HeaderSize; info.DataSize > avail {
		info.DataSize = avail
	}

	return info, nil
}

// WrapRawPCM adds a WAV header to raw PCM data.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	// WAV header is 44 bytes
	header := make([]byte, HeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16) // subchunk size
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// GetLE16 reads a little-endian uint16 from a byte slice.
func GetLE16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// GetLE32 reads a little-endian uint32 from a byte slice.
func GetLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
