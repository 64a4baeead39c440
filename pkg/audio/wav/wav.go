// Package wav decodes RIFF/WAVE PCM audio into mono float64 waveforms.
//
// Multi-channel recordings keep only their first channel. Integer samples
// are scaled to [-1, 1) by 2^(bitDepth-1).
package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// ErrInvalid is returned for inputs that are not decodable PCM WAVE data.
var ErrInvalid = errors.New("wav: invalid or unsupported file")

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Waveform is a mono sequence of samples at SampleRate.
type Waveform struct {
	Samples    []float64
	SampleRate int
	Channels   int // channel count of the source file
	BitDepth   int // bit depth of the source file
}

// Duration returns the playback duration of w.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Decode reads a complete WAVE stream.
func Decode(r io.ReadSeeker) (*Waveform, error) {
	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalid
	}
	if f := dec.WavAudioFormat; f != formatPCM && f != formatExtensible {
		return nil, fmt.Errorf("%w: audio format %d", ErrInvalid, f)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return fromIntBuffer(buf, int(dec.BitDepth))
}

// DecodeBytes decodes an in-memory WAVE file.
func DecodeBytes(data []byte) (*Waveform, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes the WAVE file at path.
func ReadFile(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	w, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func fromIntBuffer(buf *audio.IntBuffer, bitDepth int) (*Waveform, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: missing format", ErrInvalid)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalid, channels)
	}
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalid, bitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	// 8-bit WAVE samples are unsigned.
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		samples[i] = float64(buf.Data[i*channels]-offset) / scale
	}
	return &Waveform{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
	}, nil
}

// Encode writes w as 16-bit mono PCM to ws.
func Encode(ws io.WriteSeeker, w *Waveform) error {
	enc := gowav.NewEncoder(ws, w.SampleRate, 16, 1, formatPCM)
	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		v := s * 32768
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = int(v)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: close encoder: %w", err)
	}
	return nil
}

// WriteFile encodes w as a 16-bit mono WAVE file at path.
func WriteFile(path string, w *Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, w); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
