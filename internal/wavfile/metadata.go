package wavfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// EmptyARUFileSize is the size of the pre-allocated file an ARU leaves
// behind when a recording never started. Such files are never valid.
const EmptyARUFileSize = 262144

// Sentinel errors returned by Reader.
var (
	ErrNotWAV   = errors.New("not a readable RIFF/WAVE file")
	ErrNoSerial = errors.New("no serial number in wamd or guan metadata")
)

// wamd field identifiers (Wildlife Acoustics metadata).
const (
	wamdVersion = 0x00
	wamdModel   = 0x01
	wamdSerial  = 0x02
)

// Reader reads WAV metadata through an afero filesystem.
type Reader struct {
	fs afero.Fs
}

// NewReader returns a Reader over fsys.
func NewReader(fsys afero.Fs) *Reader {
	return &Reader{fs: fsys}
}

// Valid reports whether path looks like a usable recording: not an empty
// pre-allocated ARU file and carrying a well-formed RIFF/WAVE header.
func (r *Reader) Valid(path string) bool {
	fi, err := r.fs.Stat(path)
	if err != nil || fi.Size() == EmptyARUFileSize {
		return false
	}
	f, err := r.fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return wav.NewDecoder(f).IsValidFile()
}

// Duration returns the length of the PCM data in path.
func (r *Reader) Duration(path string) (time.Duration, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return 0, errors.Wrapf(ErrNotWAV, "%s: %v", path, err)
	}
	rate := int64(d.AvgBytesPerSec)
	if rate == 0 {
		rate = int64(d.SampleRate) * int64(d.NumChans) * int64(d.BitDepth) / 8
	}
	if rate == 0 {
		return 0, errors.Wrapf(ErrNotWAV, "%s: zero byte rate", path)
	}
	if err := d.FwdToPCM(); err != nil {
		return 0, errors.Wrapf(ErrNotWAV, "%s: %v", path, err)
	}
	return time.Duration(float64(d.PCMLen()) / float64(rate) * float64(time.Second)), nil
}

// Serial returns the recorder serial number from the wamd chunk, falling
// back to the GUANO "Serial" field. ErrNoSerial when neither has one.
func (r *Reader) Serial(path string) (string, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open")
	}
	defer f.Close()

	found, err := readChunks(f, "wamd", "guan")
	if err != nil {
		return "", errors.Wrapf(err, "%s", path)
	}
	if data, ok := found["wamd"]; ok {
		if s := parseWAMD(data)[wamdSerial]; s != "" {
			return s, nil
		}
	}
	if data, ok := found["guan"]; ok {
		if s := parseGUANO(data)["Serial"]; s != "" {
			return s, nil
		}
	}
	return "", errors.Wrapf(ErrNoSerial, "%s", path)
}

// readChunks walks the top-level RIFF chunks of r and returns the bodies of
// those whose IDs are listed. A chunk that claims more bytes than the file
// holds ends the walk.
func readChunks(r io.ReadSeeker, ids ...string) (map[string][]byte, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "seek")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seek")
	}

	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, ErrNotWAV
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	found := make(map[string][]byte)
	pos := int64(len(hdr))
	for len(found) < len(want) {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			break
		}
		pos += int64(len(ch))
		id := string(ch[0:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:8]))
		if size > end-pos {
			break
		}
		if want[id] {
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				break
			}
			found[id] = body
		} else if _, err := r.Seek(size, io.SeekCurrent); err != nil {
			break
		}
		pos += size
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				break
			}
			pos++
		}
	}
	return found, nil
}

// parseWAMD decodes the text fields of a wamd chunk: a sequence of
// (uint16 id, uint32 length, value) records.
func parseWAMD(data []byte) map[uint16]string {
	fields := make(map[uint16]string)
	for off := 0; off+6 <= len(data); {
		id := binary.LittleEndian.Uint16(data[off:])
		n := int(binary.LittleEndian.Uint32(data[off+2:]))
		off += 6
		if n < 0 || off+n > len(data) {
			break
		}
		if id != wamdVersion {
			fields[id] = strings.TrimSpace(string(bytes.TrimRight(data[off:off+n], "\x00")))
		}
		off += n
	}
	return fields
}

// parseGUANO decodes "key: value" lines from a guan chunk.
func parseGUANO(data []byte) map[string]string {
	fields := make(map[string]string)
	text := strings.TrimRight(string(data), "\x00")
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}
