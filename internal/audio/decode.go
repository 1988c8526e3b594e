package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces interleaved 16-bit stereo.
const mp3Channels = 2

// DecodeMP3 decodes an MP3 stream into a stereo Buffer at the stream's rate.
func DecodeMP3(data []byte) (Buffer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}

	out := Buffer{Samples: samplesFromPCM(pcm, mp3Channels), FrameRate: decoder.SampleRate(), Channels: mp3Channels}

	return out, out.Validate()
}

// SniffFormat guesses the container of encoded audio from its magic bytes.
func SniffFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FORMAT_WAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FORMAT_MP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FORMAT_MP3
	default:
		return FORMAT_UNKNOWN
	}
}

// Decode decodes WAV or MP3 bytes, chosen by SniffFormat.
func Decode(data []byte) (Buffer, error) {
	switch SniffFormat(data) {
	case FORMAT_WAV:
		return DecodeWAV(data)
	case FORMAT_MP3:
		return DecodeMP3(data)
	default:
		return Buffer{}, fmt.Errorf("%w: unrecognized container", ErrUnsupportedEncoding)
	}
}
