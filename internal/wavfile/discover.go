package wavfile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Ext is the recording extension, matched case-insensitively.
const Ext = ".wav"

// IsWAV reports whether name has a .wav extension in any case.
func IsWAV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Ext)
}

// Discover walks root and returns every .wav file, sorted lexicographically
// for deterministic processing order.
func Discover(fsys afero.Fs, root string) ([]string, error) {
	var files []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && IsWAV(info.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}
	sort.Strings(files)
	return files, nil
}
