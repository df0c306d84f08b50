package publisher

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"mystery_story_studio/generator"
)

// WAVHeaderSize is the length of a canonical PCM RIFF/WAVE header.
const WAVHeaderSize = 44

// PCMFormat describes linear PCM samples.
type PCMFormat struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// NarrationFormat is the format delivered by the speech providers.
var NarrationFormat = PCMFormat{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

func (f PCMFormat) ByteRate() uint32 {
	return f.SampleRate * uint32(f.Channels) * uint32(f.BitsPerSample) / 8
}

func (f PCMFormat) BlockAlign() uint16 {
	return f.Channels * f.BitsPerSample / 8
}

// WAVHeader builds the 44-byte header for n bytes of PCM data.
func WAVHeader(f PCMFormat, n uint32) []byte {
	var buf bytes.Buffer
	buf.Grow(WAVHeaderSize)

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+n)
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) // chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // audio format (PCM)
	binary.Write(&buf, binary.LittleEndian, f.Channels)
	binary.Write(&buf, binary.LittleEndian, f.SampleRate)
	binary.Write(&buf, binary.LittleEndian, f.ByteRate())
	binary.Write(&buf, binary.LittleEndian, f.BlockAlign())
	binary.Write(&buf, binary.LittleEndian, f.BitsPerSample)

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, n)

	return buf.Bytes()
}

// EncodeAudio wraps base64 encoded 24 kHz 16-bit mono PCM in a WAV container.
// The samples are copied verbatim after the header.
func EncodeAudio(base64Samples string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(base64Samples)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generator.ErrDecode, err)
	}
	out := make([]byte, 0, WAVHeaderSize+len(pcm))
	out = append(out, WAVHeader(NarrationFormat, uint32(len(pcm)))...)
	out = append(out, pcm...)
	return out, nil
}
