// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"hearsim/internal/dsp"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE

	// The extensible fmt chunk carries the real format code in the first two
	// bytes of its SubFormat GUID.
	extensibleSubFormatOffset = 24

	// EncodeBitDepth is the sample size Encode writes.
	EncodeBitDepth = 16
)

// DecodeError reports input bytes that could not be turned into samples.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode audio: %s: %v", e.Reason, e.Err)
	}
	return "decode audio: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads a PCM WAV file (8, 16, 24 or 32 bit) or an MP3 stream and
// returns mono samples in [-1, 1) and the sample rate. Multi-channel audio is
// mixed down by averaging the channels of each frame.
func Decode(raw []byte) ([]float64, int, error) {
	switch name := sniffContainer(raw); name {
	case "wav":
		return decodeWAV(raw)
	case "mp3":
		return decodeMP3(raw)
	default:
		return nil, 0, &DecodeError{Reason: "unsupported container: " + name}
	}
}

func decodeWAV(raw []byte) ([]float64, int, error) {

	d := wav.NewDecoder(bytes.NewReader(raw))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, 0, &DecodeError{Reason: "invalid WAV header", Err: err}
	}
	if d.NumChans < 1 || d.SampleRate == 0 {
		return nil, 0, &DecodeError{Reason: fmt.Sprintf("invalid WAV format (%d channels, %d Hz)", d.NumChans, d.SampleRate)}
	}
	format := d.WavAudioFormat
	if format == wavFormatExtensible {
		sub, err := extensibleSubFormat(raw)
		if err != nil {
			return nil, 0, &DecodeError{Reason: "invalid extensible fmt chunk", Err: err}
		}
		format = sub
	}
	if format != wavFormatPCM {
		return nil, 0, &DecodeError{Reason: fmt.Sprintf("unsupported WAV encoding %d (only integer PCM)", format)}
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, &DecodeError{Reason: fmt.Sprintf("unsupported bit depth %d", d.BitDepth)}
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, &DecodeError{Reason: "reading PCM data", Err: err}
	}

	data := buf.Data
	// The decoder reads to the end of the file; drop anything past the data
	// chunk (trailing LIST or cue chunks).
	if n := d.PCMSize / (int(d.BitDepth) / 8); d.PCMSize > 0 && len(data) > n {
		data = data[:n]
	}

	return mixDown(data, int(d.NumChans), int(d.BitDepth)), int(d.SampleRate), nil
}

// extensibleSubFormat returns the format code from the SubFormat GUID of a
// WAVE_FORMAT_EXTENSIBLE fmt chunk. wav.Decoder skips the extension bytes, so
// the chunk is walked again with the riff parser.
func extensibleSubFormat(raw []byte) (uint16, error) {
	p := riff.New(bytes.NewReader(raw))
	if err := p.ParseHeaders(); err != nil {
		return 0, err
	}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, err
		}
		if ch.ID != riff.FmtID {
			if _, err := io.CopyN(io.Discard, ch.R, int64(ch.Size)); err != nil {
				return 0, err
			}
			continue
		}
		body := make([]byte, ch.Size)
		if _, err := io.ReadFull(ch.R, body); err != nil {
			return 0, err
		}
		if len(body) < extensibleSubFormatOffset+2 {
			return 0, fmt.Errorf("fmt chunk is %d bytes, too short for a SubFormat", len(body))
		}
		return binary.LittleEndian.Uint16(body[extensibleSubFormatOffset:]), nil
	}
}

// decodeMP3 decodes every frame of an MPEG audio stream. go-mp3 always emits
// 16-bit little-endian stereo, mono sources included.
func decodeMP3(raw []byte) ([]float64, int, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, &DecodeError{Reason: "invalid MP3 stream", Err: err}
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, &DecodeError{Reason: "reading MP3 frames", Err: err}
	}
	if d.SampleRate() <= 0 {
		return nil, 0, &DecodeError{Reason: fmt.Sprintf("invalid MP3 sample rate %d", d.SampleRate())}
	}

	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return mixDown(data, 2, 16), d.SampleRate(), nil
}

// mixDown averages interleaved integer frames into one float channel. A
// trailing partial frame is dropped.
func mixDown(data []int, channels, bitDepth int) []float64 {
	scale := math.Ldexp(1, bitDepth-1)
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned, centered on 128.
		offset = scale
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := range out {
		var sum float64
		for c := range channels {
			sum += float64(data[i*channels+c]) - offset
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

// sniffContainer names the container from its magic bytes.
func sniffContainer(raw []byte) string {
	switch {
	case len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WAVE":
		return "wav"
	case len(raw) >= 3 && string(raw[0:3]) == "ID3",
		len(raw) >= 2 && raw[0] == 0xFF && raw[1]&0xE0 == 0xE0:
		return "mp3"
	case len(raw) >= 8 && string(raw[4:8]) == "ftyp":
		return "mp4/m4a"
	case len(raw) >= 4 && string(raw[0:4]) == "OggS":
		return "ogg"
	case len(raw) >= 4 && string(raw[0:4]) == "fLaC":
		return "flac"
	case len(raw) == 0:
		return "empty input"
	default:
		return "unknown format"
	}
}

// Encode writes samples as a mono 16-bit PCM WAV file. Samples are clipped to
// [-1, 1]. A buffer containing NaN or Inf is rejected with a
// *dsp.NumericAnomalyError.
func Encode(samples []float64, sampleRate int) ([]byte, error) {
	var ws writeSeeker
	if err := encodeTo(&ws, samples, sampleRate); err != nil {
		return nil, err
	}
	return ws.Bytes(), nil
}

func encodeTo(w io.WriteSeeker, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return &dsp.InvalidParameterError{Param: "sample_rate", Value: float64(sampleRate), Reason: "must be positive"}
	}
	if err := dsp.CheckFinite(samples); err != nil {
		return err
	}

	const full = 1<<(EncodeBitDepth-1) - 1
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(max(-1, min(1, v)) * full))
	}

	enc := wav.NewEncoder(w, sampleRate, EncodeBitDepth, 1, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: EncodeBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// writeSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes once the data is written.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(w.pos)
	case io.SeekEnd:
		base = int64(len(w.buf))
	default:
		return 0, errors.New("writeSeeker: invalid whence")
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("writeSeeker: negative position")
	}
	w.pos = int(next)
	return next, nil
}

func (w *writeSeeker) Bytes() []byte { return w.buf }
