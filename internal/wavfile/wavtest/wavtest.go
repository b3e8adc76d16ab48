// Package wavtest writes small, valid WAV files for tests: 16-bit mono PCM
// at 1 kHz, silent, with optional extra RIFF chunks after the data chunk.
package wavtest

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const (
	SampleRate  = 1000
	bytesPerSec = SampleRate * 2
)

// Chunk is an extra top-level RIFF chunk.
type Chunk struct {
	ID   string
	Data []byte
}

// WAMD builds a Wildlife Acoustics metadata chunk holding a version, model
// and serial field.
func WAMD(model, serial string) Chunk {
	var b bytes.Buffer
	field := func(id uint16, v []byte) {
		_ = binary.Write(&b, binary.LittleEndian, id)
		_ = binary.Write(&b, binary.LittleEndian, uint32(len(v)))
		b.Write(v)
	}
	field(0x00, []byte{0x01, 0x00})
	field(0x01, []byte(model))
	field(0x02, []byte(serial))
	return Chunk{ID: "wamd", Data: b.Bytes()}
}

// GUANO builds a guan chunk from "key: value" lines.
func GUANO(lines ...string) Chunk {
	text := "GUANO|Version: 1.0\n"
	for _, l := range lines {
		text += l + "\n"
	}
	return Chunk{ID: "guan", Data: []byte(text)}
}

// Bytes returns a complete WAV file holding the given length of silence.
func Bytes(length time.Duration, extra ...Chunk) []byte {
	dataLen := int(length.Seconds()*SampleRate) * 2

	riffSize := 4 + (8 + 16) + (8 + dataLen)
	for _, c := range extra {
		riffSize += 8 + len(c.Data) + len(c.Data)%2
	}

	var b bytes.Buffer
	le := func(v interface{}) { _ = binary.Write(&b, binary.LittleEndian, v) }
	b.WriteString("RIFF")
	le(uint32(riffSize))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(1)) // mono
	le(uint32(SampleRate))
	le(uint32(bytesPerSec))
	le(uint16(2))  // block align
	le(uint16(16)) // bits per sample

	b.WriteString("data")
	le(uint32(dataLen))
	b.Write(make([]byte, dataLen))

	for _, c := range extra {
		b.WriteString(c.ID)
		le(uint32(len(c.Data)))
		b.Write(c.Data)
		if len(c.Data)%2 == 1 {
			b.WriteByte(0)
		}
	}
	return b.Bytes()
}

// Write creates path (and its parents) on fsys holding a WAV of the given
// length, with the given modification time when mtime is non-zero.
func Write(t testing.TB, fsys afero.Fs, path string, length time.Duration, mtime time.Time, extra ...Chunk) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, path, Bytes(length, extra...), 0o644); err != nil {
		t.Fatal(err)
	}
	if !mtime.IsZero() {
		if err := fsys.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
}

// Touch creates an arbitrary (non-WAV) file with content.
func Touch(t testing.TB, fsys afero.Fs, path, content string) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
