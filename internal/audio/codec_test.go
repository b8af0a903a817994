// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"hearsim/internal/dsp"
	"hearsim/pkg/utils"
)

const testSampleRate = 44100

// rawWAV builds a WAV file from interleaved integer samples.
func rawWAV(t *testing.T, data []int, rate, bitDepth, channels int) []byte {
	t.Helper()
	var ws writeSeeker
	enc := wav.NewEncoder(&ws, rate, bitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
	return ws.Bytes()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	in := utils.GenerateComplexWave(4410, testSampleRate)
	raw, err := Encode(in, testSampleRate)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, rate, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rate != testSampleRate {
		t.Errorf("rate = %d, want %d", rate, testSampleRate)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1e-4 {
			t.Fatalf("sample %d: got %g, want %g", i, out[i], in[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	raw, err := Encode(nil, 8000)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, rate, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != 0 || rate != 8000 {
		t.Errorf("got %d samples at %d Hz", len(out), rate)
	}
}

func TestEncodeClipsAndRejects(t *testing.T) {
	t.Parallel()

	raw, err := Encode([]float64{2, -3, 0.5}, testSampleRate)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, _, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] < 0.9999 || out[1] > -0.9999 {
		t.Errorf("out of range samples not clipped: %v", out)
	}

	_, err = Encode([]float64{0, math.Inf(1)}, testSampleRate)
	var nae *dsp.NumericAnomalyError
	if !errors.As(err, &nae) || nae.Index != 1 {
		t.Errorf("expected NumericAnomalyError at 1, got %v", err)
	}

	_, err = Encode([]float64{0}, 0)
	var ipe *dsp.InvalidParameterError
	if !errors.As(err, &ipe) {
		t.Errorf("expected InvalidParameterError, got %v", err)
	}
}

func TestDecodeBitDepths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bitDepth int
		data     []int
		want     []float64
	}{
		{8, []int{128, 255, 0, 192}, []float64{0, 127.0 / 128, -1, 0.5}},
		{16, []int{0, 16384, -32768}, []float64{0, 0.5, -1}},
		{24, []int{0, 1 << 22, -(1 << 23)}, []float64{0, 0.5, -1}},
		{32, []int{0, 1 << 30, -(1 << 31)}, []float64{0, 0.5, -1}},
	}
	for _, tt := range tests {
		got, _, err := Decode(rawWAV(t, tt.data, 22050, tt.bitDepth, 1))
		if err != nil {
			t.Fatalf("%d-bit: %v", tt.bitDepth, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%d-bit: got %d samples, want %d", tt.bitDepth, len(got), len(tt.want))
		}
		for i := range got {
			if math.Abs(got[i]-tt.want[i]) > 1e-9 {
				t.Errorf("%d-bit sample %d = %g, want %g", tt.bitDepth, i, got[i], tt.want[i])
			}
		}
	}
}

func TestDecodeMixesDownStereo(t *testing.T) {
	t.Parallel()

	// L/R pairs: (0.5, -0.5), (0.5, 0.5), (-1, 0)
	data := []int{16384, -16384, 16384, 16384, -32768, 0}
	got, rate, err := Decode(rawWAV(t, data, 48000, 16, 2))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, -0.5}
	if rate != 48000 || len(got) != len(want) {
		t.Fatalf("got %d samples at %d Hz", len(got), rate)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("frame %d = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestDecodeRejectsOtherContainers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    []byte
		reason string
	}{
		{"empty", nil, "empty input"},
		{"m4a", []byte("\x00\x00\x00\x20ftypM4A \x00\x00"), "mp4/m4a"},
		{"ogg", []byte("OggS\x00\x02"), "ogg"},
		{"text", []byte("hello, world"), "unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.raw)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if de.Reason != "unsupported container: "+tt.reason {
				t.Errorf("Reason = %q", de.Reason)
			}
		})
	}
}

func TestDecodeRejectsCorruptWAV(t *testing.T) {
	t.Parallel()

	valid := rawWAV(t, []int{1, 2, 3, 4}, 8000, 16, 1)

	// A RIFF/WAVE header with nothing after it.
	truncated := valid[:12]
	_, _, err := Decode(truncated)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("truncated: expected DecodeError, got %v", err)
	}

	// IEEE float encoding is not integer PCM.
	float := append([]byte(nil), valid...)
	float[20] = 3
	if _, _, err := Decode(float); !errors.As(err, &de) {
		t.Errorf("float WAV: expected DecodeError, got %v", err)
	}
}

// extensibleWAV builds a mono WAVE_FORMAT_EXTENSIBLE file whose SubFormat
// GUID starts with subFormat.
func extensibleWAV(subFormat uint16, bitDepth int, payload []byte) []byte {
	const rate = 8000
	blockAlign := bitDepth / 8

	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	b.WriteString("RIFF")
	le(uint32(4 + 8 + 40 + 8 + len(payload)))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	le(uint32(40))
	le(uint16(wavFormatExtensible))
	le(uint16(1))
	le(uint32(rate))
	le(uint32(rate * blockAlign))
	le(uint16(blockAlign))
	le(uint16(bitDepth))
	le(uint16(22)) // cbSize
	le(uint16(bitDepth))
	le(uint32(4)) // front center
	le(subFormat)
	b.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})

	b.WriteString("data")
	le(uint32(len(payload)))
	b.Write(payload)
	return b.Bytes()
}

func TestDecodeExtensibleWAV(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 4)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(16384))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(0xC000)) // -16384
	got, rate, err := Decode(extensibleWAV(wavFormatPCM, 16, pcm))
	if err != nil {
		t.Fatalf("PCM sub-format: %v", err)
	}
	if rate != 8000 || len(got) != 2 || math.Abs(got[0]-0.5) > 1e-9 || math.Abs(got[1]+0.5) > 1e-9 {
		t.Errorf("PCM sub-format: got %v at %d Hz", got, rate)
	}

	floats := make([]byte, 8)
	binary.LittleEndian.PutUint32(floats[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(floats[4:], math.Float32bits(-0.25))
	_, _, err = Decode(extensibleWAV(wavFormatFloat, 32, floats))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("float sub-format: expected DecodeError, got %v", err)
	}
	if !strings.Contains(de.Reason, "encoding 3") {
		t.Errorf("Reason = %q", de.Reason)
	}
}

// silentMP3 builds an MPEG-1 Layer III stream of silent 128 kbps 44.1 kHz
// stereo frames. Zeroed side info means no Huffman data, so every frame
// decodes to 1152 zero samples per channel.
func silentMP3(frames int, id3 bool) []byte {
	const frameSize = 144 * 128000 / 44100
	var b bytes.Buffer
	if id3 {
		b.WriteString("ID3\x04\x00\x00")
		b.Write([]byte{0, 0, 0, 10})
		b.Write(make([]byte, 10))
	}
	for range frames {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
		b.Write(frame)
	}
	return b.Bytes()
}

func TestDecodeMP3(t *testing.T) {
	t.Parallel()

	for _, id3 := range []bool{false, true} {
		got, rate, err := Decode(silentMP3(4, id3))
		if err != nil {
			t.Fatalf("id3=%v: %v", id3, err)
		}
		if rate != 44100 {
			t.Errorf("id3=%v: rate = %d, want 44100", id3, rate)
		}
		if len(got) != 4*1152 {
			t.Errorf("id3=%v: got %d samples, want %d", id3, len(got), 4*1152)
		}
		for i, v := range got {
			if v != 0 {
				t.Fatalf("id3=%v: sample %d = %g, want silence", id3, i, v)
			}
		}
	}
}

func TestDecodeRejectsTruncatedMP3(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string][]byte{
		"tag only":    []byte("ID3\x04\x00\x00\x00\x00\x00\x00"),
		"header only": {0xFF, 0xFB, 0x90, 0x00},
	} {
		_, _, err := Decode(raw)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("%s: expected DecodeError, got %v", name, err)
		}
	}
}

func TestDecodeErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := &DecodeError{Reason: "reading PCM data", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("DecodeError should unwrap to its cause")
	}
	if got := err.Error(); got != "decode audio: reading PCM data: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWriteSeeker(t *testing.T) {
	t.Parallel()

	var ws writeSeeker
	_, _ = ws.Write([]byte("abcdef"))
	if _, err := ws.Seek(2, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	_, _ = ws.Write([]byte("XY"))
	if pos, _ := ws.Seek(0, io.SeekEnd); pos != 6 {
		t.Errorf("end = %d, want 6", pos)
	}
	_, _ = ws.Write([]byte("!"))
	if got := string(ws.Bytes()); got != "abXYef!" {
		t.Errorf("buffer = %q", got)
	}
	if _, err := ws.Seek(-10, io.SeekCurrent); err == nil {
		t.Error("expected error seeking before start")
	}
}
