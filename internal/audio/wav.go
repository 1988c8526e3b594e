package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	wavHeaderSize   = 44
	wavFmtChunkSize = 16
	wavFormatPCM    = 1
	bytesPerSample  = DEFAULT_BIT_DEPTH / 8
)

// ErrInvalidWAV indicates that data is not a RIFF/WAVE container.
var ErrInvalidWAV = errors.New("invalid WAV data")

// EncodeWAV serializes b as a 16-bit PCM RIFF/WAVE file. The header carries
// the buffer's nominal frame rate unchanged.
func EncodeWAV(b Buffer) []byte {
	dataSize := len(b.Samples) * bytesPerSample
	blockAlign := b.Channels * bytesPerSample

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + dataSize)

	buf.WriteString("RIFF")
	writeLE(&buf, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeLE(&buf, uint32(wavFmtChunkSize))
	writeLE(&buf, uint16(wavFormatPCM))
	writeLE(&buf, uint16(b.Channels))
	writeLE(&buf, uint32(b.FrameRate))
	writeLE(&buf, uint32(b.FrameRate*blockAlign))
	writeLE(&buf, uint16(blockAlign))
	writeLE(&buf, uint16(DEFAULT_BIT_DEPTH))

	buf.WriteString("data")
	writeLE(&buf, uint32(dataSize))

	pcm := make([]byte, dataSize)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWAV parses a 16-bit PCM RIFF/WAVE file. Chunks are walked rather than
// assuming a fixed 44-byte header, since encoders add LIST and fact chunks.
func DecodeWAV(data []byte) (Buffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Buffer{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		out      Buffer
		foundFmt bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < wavFmtChunkSize || body+wavFmtChunkSize > len(data) {
				return Buffer{}, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}

			format := binary.LittleEndian.Uint16(data[body : body+2])
			bitDepth := binary.LittleEndian.Uint16(data[body+14 : body+16])

			if format != wavFormatPCM || bitDepth != DEFAULT_BIT_DEPTH {
				return Buffer{}, fmt.Errorf("%w: format %d with %d bits per sample",
					ErrUnsupportedEncoding, format, bitDepth)
			}

			out.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			out.FrameRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			foundFmt = true
		case "data":
			if !foundFmt {
				return Buffer{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}

			end := min(body+chunkSize, len(data))
			out.Samples = samplesFromPCM(data[body:end], out.Channels)

			return out, out.Validate()
		}

		offset = body + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}

	return Buffer{}, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
}

// samplesFromPCM reads little-endian 16-bit samples and drops a trailing
// partial frame.
func samplesFromPCM(pcm []byte, channels int) []int16 {
	frameBytes := max(channels, 1) * bytesPerSample
	pcm = pcm[:len(pcm)-len(pcm)%frameBytes]

	samples := make([]int16, len(pcm)/bytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}

	return samples
}

func writeLE(buf *bytes.Buffer, v any) {
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, v)
}
