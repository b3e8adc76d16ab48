package renamer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnwtools/pnwtools/internal/config"
	"github.com/pnwtools/pnwtools/internal/runctx"
	"github.com/pnwtools/pnwtools/internal/wavfile/wavtest"
)

var station = filepath.FromSlash("/data/OLY_30020/Stn_1")

func in(name string) string { return filepath.Join(station, name) }

// failingFs refuses to rename or create selected paths.
type failingFs struct {
	afero.Fs
	renames map[string]bool
	opens   map[string]bool
}

func (f failingFs) Rename(oldname, newname string) error {
	if f.renames[oldname] {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}
	return f.Fs.Rename(oldname, newname)
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.opens[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func seed(t *testing.T, fsys afero.Fs, names ...string) {
	t.Helper()
	for _, n := range names {
		wavtest.Write(t, fsys, in(n), time.Second, time.Time{})
	}
}

func names(t *testing.T, fsys afero.Fs, dir string) []string {
	t.Helper()
	infos, err := afero.ReadDir(fsys, dir)
	require.NoError(t, err)
	var out []string
	for _, fi := range infos {
		out = append(out, fi.Name())
	}
	return out
}

func pass(t *testing.T, fsys afero.Fs, opts Options) (Result, *runctx.Run) {
	t.Helper()
	run := runctx.New(station, nil)
	res, err := New(fsys, opts).Rename(context.Background(), run)
	require.NoError(t, err)
	return res, run
}

func TestScan(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav", "S4A12345$20190502$070000.WAV")
	wavtest.Touch(t, fsys, in("notes.txt"), "x")

	var recs []Record
	for rec, err := range Scan(fsys, station) {
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	require.Len(t, recs, 2)
	assert.Equal(t, "OLY_30020-1_20190501_060000.wav", recs[0].NewName)
	assert.Equal(t, "OLY_30020-1_20190502_070000.WAV", recs[1].NewName)
	assert.Equal(t, "OLY_30020-1", recs[0].StationID())
	assert.True(t, recs[1].FromName)
}

func TestScan_StopsEarly(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "a.wav", "b.wav", "c.wav")
	n := 0
	for range Scan(fsys, station) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestRename_KeepsEmbeddedTimestamp(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav")

	res, run := pass(t, fsys, Options{})
	assert.Equal(t, ModeRename, res.Mode)
	assert.Equal(t, 1, res.Renamed)
	assert.Equal(t, []string{"OLY_30020-1_20190501_060000.wav", config.RenameLogName}, names(t, fsys, station))
	assert.Empty(t, run.Issues())
}

func TestRename_FallsBackToModTime(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mtime := time.Date(2020, 6, 2, 21, 15, 7, 500, time.Local)
	wavtest.Write(t, fsys, in("audio_0001.wav"), time.Second, mtime)

	res, run := pass(t, fsys, Options{})
	require.Len(t, res.Entries, 1)
	assert.Equal(t, in("OLY_30020-1_20200602_211507.wav"), res.Entries[0].NewPath)
	assert.Equal(t, 1, run.Count(runctx.KindUnparseableTimestamp))
	assert.Empty(t, run.Failures())
}

func TestRename_Toggle(t *testing.T) {
	fsys := afero.NewMemMapFs()
	original := []string{"S4A12345$20190502$060000.wav", "S4A12345_20190501_060000.wav"}
	seed(t, fsys, original...)

	res, _ := pass(t, fsys, Options{})
	assert.Equal(t, ModeRename, res.Mode)
	assert.Equal(t, 2, res.Renamed)
	assert.Equal(t, []string{
		"OLY_30020-1_20190501_060000.wav",
		"OLY_30020-1_20190502_060000.wav",
		config.RenameLogName,
	}, names(t, fsys, station))

	res, run := pass(t, fsys, Options{})
	assert.Equal(t, ModeUndo, res.Mode)
	assert.Equal(t, 2, res.Renamed)
	assert.Empty(t, res.Archived)
	assert.Equal(t, original, names(t, fsys, station))
	assert.Empty(t, run.Failures())

	// And around again.
	res, _ = pass(t, fsys, Options{})
	assert.Equal(t, ModeRename, res.Mode)
	assert.Equal(t, 2, res.Renamed)
}

func TestRename_LogContents(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav")
	pass(t, fsys, Options{})

	b, err := afero.ReadFile(fsys, in(config.RenameLogName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Old_path,New_path", lines[0])
	assert.Equal(t, in("S4A12345_20190501_060000.wav")+","+in("OLY_30020-1_20190501_060000.wav"), lines[1])
}

func TestRename_Collisions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys,
		"A_20190501_060000.wav",
		"B_20190501_060000.wav",
		"OLY_30020-1_20190501_060000.wav",
	)

	res, run := pass(t, fsys, Options{})
	assert.Equal(t, 2, res.Renamed)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 2, res.Deduped)
	assert.Equal(t, []string{
		"OLY_30020-1_20190501_060000.wav",
		"OLY_30020-1_20190501_060000_dup01.wav",
		"OLY_30020-1_20190501_060000_dup02.wav",
		config.RenameLogName,
	}, names(t, fsys, station))
	assert.True(t, run.Has(ErrNameCollision))
	assert.Empty(t, run.Failures())

	// Undo brings both back without touching the file that was already canonical.
	res, _ = pass(t, fsys, Options{})
	assert.Equal(t, ModeUndo, res.Mode)
	assert.Equal(t, []string{
		"A_20190501_060000.wav",
		"B_20190501_060000.wav",
		"OLY_30020-1_20190501_060000.wav",
	}, names(t, fsys, station))
}

func TestRename_ExistingDupNamesStay(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "OLY_30020-1_20190501_060000.wav", "OLY_30020-1_20190501_060000_dup01.wav")

	res, _ := pass(t, fsys, Options{DryRun: true})
	assert.Zero(t, res.Renamed)
	assert.Equal(t, 2, res.Unchanged)
	assert.Empty(t, res.Entries)

	res, _ = pass(t, fsys, Options{})
	assert.Zero(t, res.Renamed)
	ok, _ := afero.Exists(fsys, in(config.RenameLogName))
	assert.False(t, ok)
}

func TestRename_ModTimesCollideWithinSecond(t *testing.T) {
	fsys := afero.NewMemMapFs()
	base := time.Date(2020, 6, 2, 21, 15, 7, 0, time.Local)
	wavtest.Write(t, fsys, in("audio_a.wav"), time.Second, base.Add(100*time.Millisecond))
	wavtest.Write(t, fsys, in("audio_b.wav"), time.Second, base.Add(900*time.Millisecond))

	res, run := pass(t, fsys, Options{})
	assert.Equal(t, 2, res.Renamed)
	assert.Equal(t, 1, res.Deduped)
	assert.Equal(t, 2, run.Count(runctx.KindUnparseableTimestamp))
	assert.Equal(t, []string{
		"OLY_30020-1_20200602_211507.wav",
		"OLY_30020-1_20200602_211507_dup01.wav",
		config.RenameLogName,
	}, names(t, fsys, station))

	res, run = pass(t, fsys, Options{})
	assert.Equal(t, ModeUndo, res.Mode)
	assert.Equal(t, 2, res.Renamed)
	assert.Empty(t, run.Failures())
	assert.Equal(t, []string{"audio_a.wav", "audio_b.wav"}, names(t, fsys, station))
}

func TestRename_NothingToDoWritesNoLog(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "OLY_30020-1_20190501_060000.wav")

	for i := 0; i < 2; i++ {
		res, _ := pass(t, fsys, Options{})
		assert.Equal(t, ModeRename, res.Mode)
		assert.Zero(t, res.Renamed)
		ok, _ := afero.Exists(fsys, in(config.RenameLogName))
		assert.False(t, ok)
	}
}

func TestRename_DryRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav")

	res, _ := pass(t, fsys, Options{DryRun: true})
	assert.Equal(t, 1, res.Renamed)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, []string{"S4A12345_20190501_060000.wav"}, names(t, fsys, station))
}

func TestRename_PartialFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	seed(t, mem, "a_20190501_060000.wav", "b_20190502_060000.wav", "c_20190503_060000.wav")
	fsys := failingFs{Fs: mem, renames: map[string]bool{in("b_20190502_060000.wav"): true}}

	res, run := pass(t, fsys, Options{})
	assert.Equal(t, 2, res.Renamed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, run.Count(runctx.KindFileAccessDenied))
	assert.True(t, run.Has(ErrFileAccessDenied))

	entries, problems, err := ReadLog(mem, in(config.RenameLogName))
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Len(t, entries, 2)
}

func TestRename_LogUnwritableRollsBack(t *testing.T) {
	mem := afero.NewMemMapFs()
	seed(t, mem, "S4A12345_20190501_060000.wav")
	fsys := failingFs{Fs: mem, opens: map[string]bool{in(config.RenameLogName): true}}

	_, err := New(fsys, Options{}).Rename(context.Background(), runctx.New(station, nil))
	require.Error(t, err)
	assert.Equal(t, []string{"S4A12345_20190501_060000.wav"}, names(t, mem, station))
}

func TestRename_InvalidRoot(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), Options{}).Rename(context.Background(), runctx.New("/nope", nil))
	assert.ErrorIs(t, err, config.ErrInvalidTargetPath)
}

func TestRename_Cancelled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(fsys, Options{}).Rename(ctx, runctx.New(station, nil))
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Zero(t, res.Renamed)
	ok, _ := afero.Exists(fsys, in(config.RenameLogName))
	assert.False(t, ok)
}

func writeLog(t *testing.T, fsys afero.Fs, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, in(config.RenameLogName), []byte(content), 0o644))
}

func TestUndo_ReverseOrder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "z.wav")
	writeLog(t, fsys, "Old_path,New_path\n"+
		in("x.wav")+","+in("y.wav")+"\n"+
		in("y.wav")+","+in("z.wav")+"\n")

	res, run := pass(t, fsys, Options{})
	assert.Equal(t, 2, res.Renamed)
	assert.Empty(t, run.Failures())
	assert.Equal(t, []string{"x.wav"}, names(t, fsys, station))
}

func TestUndo_LegacyThreeColumnLog(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "OLY_30020-1_20190501_060000.wav")
	writeLog(t, fsys, "Old_path,New_path\n"+
		station+",S4A12345_20190501_060000.wav,OLY_30020-1_20190501_060000.wav\n")

	res, _ := pass(t, fsys, Options{})
	assert.Equal(t, 1, res.Renamed)
	assert.Equal(t, []string{"S4A12345_20190501_060000.wav"}, names(t, fsys, station))
}

func TestUndo_CorruptRowsArchiveLog(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "new.wav")
	writeLog(t, fsys, "Old_path,New_path\n"+
		"garbage\n"+
		in("old.wav")+","+in("new.wav")+"\n")

	res, run := pass(t, fsys, Options{})
	assert.Equal(t, 1, res.Renamed)
	assert.Equal(t, 1, run.Count(runctx.KindCorruptLog))
	assert.True(t, run.Has(ErrCorruptLog))
	require.NotEmpty(t, res.Archived)
	assert.True(t, strings.HasPrefix(filepath.Base(res.Archived), "Rename_Log.undone-"))
	assert.Equal(t, []string{filepath.Base(res.Archived), "old.wav"}, names(t, fsys, station))
}

func TestUndo_Conflicts(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "taken.wav", "renamed.wav")
	writeLog(t, fsys, "Old_path,New_path\n"+
		in("gone.wav")+","+in("missing.wav")+"\n"+
		in("taken.wav")+","+in("renamed.wav")+"\n")

	res, run := pass(t, fsys, Options{})
	assert.Zero(t, res.Renamed)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, run.Count(runctx.KindFileMissing))
	assert.Equal(t, 1, run.Count(runctx.KindNameCollision))
	assert.NotEmpty(t, res.Archived)
	ok, _ := afero.Exists(fsys, in(config.RenameLogName))
	assert.False(t, ok)
}

func TestUndo_KeepLog(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav")
	pass(t, fsys, Options{})

	res, _ := pass(t, fsys, Options{KeepLog: true})
	assert.Equal(t, ModeUndo, res.Mode)
	require.NotEmpty(t, res.Archived)
	ok, _ := afero.Exists(fsys, res.Archived)
	assert.True(t, ok)

	// The archived log does not count as a pending undo.
	res, _ = pass(t, fsys, Options{})
	assert.Equal(t, ModeRename, res.Mode)
}

func TestUndo_DryRunKeepsLog(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav")
	pass(t, fsys, Options{})

	res, _ := pass(t, fsys, Options{DryRun: true})
	assert.Equal(t, ModeUndo, res.Mode)
	assert.Equal(t, 1, res.Renamed)
	ok, _ := afero.Exists(fsys, in(config.RenameLogName))
	assert.True(t, ok)
	assert.Contains(t, names(t, fsys, station), "OLY_30020-1_20190501_060000.wav")
}

func TestUndo_CancelledKeepsEntries(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "S4A12345_20190501_060000.wav")
	pass(t, fsys, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New(fsys, Options{}).Rename(ctx, runctx.New(station, nil))
	require.NoError(t, err)
	assert.True(t, res.Stopped)

	entries, _, err := ReadLog(fsys, in(config.RenameLogName))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUndo_CancelledKeepsUnreadableRows(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys, "new.wav")
	writeLog(t, fsys, "Old_path,New_path\n"+
		"garbage\n"+
		in("old.wav")+","+in("new.wav")+"\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New(fsys, Options{}).Rename(ctx, runctx.New(station, nil))
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	require.NotEmpty(t, res.Archived)
	assert.Contains(t, read(t, fsys, res.Archived), "garbage")

	entries, problems, err := ReadLog(fsys, in(config.RenameLogName))
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, []LogEntry{{OriginalPath: in("old.wav"), NewPath: in("new.wav")}}, entries)
}

func read(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	b, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	return string(b)
}
