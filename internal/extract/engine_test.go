package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/javi11/romdeploy/internal/archive"
	"github.com/javi11/romdeploy/internal/classifier"
	apperrors "github.com/javi11/romdeploy/internal/errors"
	"github.com/javi11/romdeploy/internal/progress"
	"github.com/javi11/romdeploy/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource records every archive it is asked to open.
type countingSource struct {
	inner  Source
	mu     sync.Mutex
	opened []string
	before func(path string)
}

func (c *countingSource) Walk(ctx context.Context, path string, fn archive.WalkFunc) error {
	c.mu.Lock()
	c.opened = append(c.opened, filepath.Base(path))
	c.mu.Unlock()
	if c.before != nil {
		c.before(path)
	}
	return c.inner.Walk(ctx, path, fn)
}

// failingFs fails to create one specific file.
type failingFs struct {
	afero.Fs
	failOn string
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.ToSlash(name) == f.failOn {
		return nil, errors.New("disk full")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

type fixture struct {
	srcFs afero.Fs
	mem   afero.Fs
	dst   afero.Fs
	src   *countingSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srcFs := afero.NewMemMapFs()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/usb", 0o755))
	return &fixture{
		srcFs: srcFs,
		mem:   mem,
		dst:   afero.NewBasePathFs(mem, "/usb"),
		src:   &countingSource{inner: archive.NewInspector(srcFs)},
	}
}

func (f *fixture) job(names ...string) Job {
	job := Job{ID: "job-1", Destination: "/usb"}
	for _, name := range names {
		job.Archives = append(job.Archives, JobArchive{Path: "/src/" + name, Name: name, Size: 10})
	}
	return job
}

func (f *fixture) written(t *testing.T, name string) []byte {
	t.Helper()
	data, err := afero.ReadFile(f.mem, filepath.Join("/usb", name))
	require.NoError(t, err)
	return data
}

func (f *fixture) exists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := afero.Exists(f.mem, filepath.Join("/usb", name))
	require.NoError(t, err)
	return ok
}

func writeABC(t *testing.T, fs afero.Fs) {
	for _, name := range []string{"a", "b", "c"} {
		testutil.WriteZip(t, fs, "/src/"+name+".zip", []testutil.ZipEntry{
			testutil.File(name+"/1.bin", 4, '1'),
			testutil.File(name+"/2.bin", 4, '2'),
			testutil.File(name+"/3.bin", 4, '3'),
		})
	}
}

func TestExtract_WritesEntriesAndClearsProgress(t *testing.T) {
	f := newFixture(t)
	testutil.WriteZip(t, f.srcFs, "/src/a.zip", []testutil.ZipEntry{
		testutil.Dir("a/"),
		testutil.File("a/1.bin", 3, 'x'),
		testutil.File("a/sub/2.bin", 5, 'y'),
	})

	engine := NewEngine(f.src, f.dst)
	res, err := engine.Extract(context.Background(), f.job("a.zip"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, 2, res.EntriesWritten)
	assert.Equal(t, int64(8), res.BytesWritten)
	assert.True(t, res.Complete())
	assert.True(t, res.ProgressCleared)

	assert.Equal(t, []byte("xxx"), f.written(t, "a/1.bin"))
	assert.Equal(t, []byte("yyyyy"), f.written(t, "a/sub/2.bin"))
	assert.False(t, f.exists(t, progress.FileName))

	info, err := f.mem.Stat("/usb/a")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExtract_OverwritesExistingFiles(t *testing.T) {
	f := newFixture(t)
	testutil.WriteZip(t, f.srcFs, "/src/a.zip", []testutil.ZipEntry{testutil.File("a/1.bin", 2, 'n')})
	require.NoError(t, afero.WriteFile(f.mem, "/usb/a/1.bin", []byte("old and longer"), 0o644))

	_, err := NewEngine(f.src, f.dst).Extract(context.Background(), f.job("a.zip"))
	require.NoError(t, err)

	assert.Equal(t, []byte("nn"), f.written(t, "a/1.bin"))
}

func TestExtract_ResumeSkipsCompletedArchives(t *testing.T) {
	f := newFixture(t)
	writeABC(t, f.srcFs)

	store := progress.NewStore(f.dst)
	require.NoError(t, store.Append(context.Background(), "a.zip"))
	require.NoError(t, store.Append(context.Background(), "b.zip"))

	res, err := NewEngine(f.src, f.dst).Extract(context.Background(), f.job("a.zip", "b.zip", "c.zip"))
	require.NoError(t, err)

	assert.Equal(t, []string{"c.zip"}, f.src.opened)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Extracted)
	assert.True(t, f.exists(t, "c/3.bin"))
	assert.False(t, f.exists(t, "a/1.bin"))
	assert.True(t, res.ProgressCleared)
}

func TestExtract_FailureIsIsolatedPerArchive(t *testing.T) {
	f := newFixture(t)
	writeABC(t, f.srcFs)

	dst := failingFs{Fs: f.dst, failOn: "b/3.bin"}
	engine := NewEngine(f.src, dst)

	res, err := engine.Extract(context.Background(), f.job("a.zip", "b.zip", "c.zip"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.zip", "b.zip", "c.zip"}, f.src.opened)
	assert.Equal(t, 2, res.Extracted)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"b.zip"}, res.FailedNames())
	assert.False(t, res.Complete())
	assert.False(t, res.ProgressCleared)

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, apperrors.ErrEntryWriteFailure)
	var writeErr *apperrors.EntryWriteError
	require.ErrorAs(t, res.Failures[0].Err, &writeErr)
	assert.Equal(t, "b/3.bin", writeErr.Entry)

	completed, err := engine.Store().Completed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.zip", "c.zip"}, completed)

	assert.True(t, f.exists(t, "b/2.bin"))
	assert.True(t, f.exists(t, "c/3.bin"))
}

func TestExtract_RetryAfterFailureOnlyRedoesFailedArchive(t *testing.T) {
	f := newFixture(t)
	writeABC(t, f.srcFs)

	_, err := NewEngine(f.src, failingFs{Fs: f.dst, failOn: "b/3.bin"}).
		Extract(context.Background(), f.job("a.zip", "b.zip", "c.zip"))
	require.NoError(t, err)

	f.src.opened = nil
	res, err := NewEngine(f.src, f.dst).Extract(context.Background(), f.job("a.zip", "b.zip", "c.zip"))
	require.NoError(t, err)

	assert.Equal(t, []string{"b.zip"}, f.src.opened)
	assert.Equal(t, 2, res.Skipped)
	assert.True(t, res.ProgressCleared)
}

func TestExtract_FilterKeepsAllowedAndSharedEntries(t *testing.T) {
	f := newFixture(t)
	testutil.WriteZip(t, f.srcFs, "/src/bundle.zip", []testutil.ZipEntry{
		testutil.File("games/x/data.bin", 3, 'x'),
		testutil.File("games/x/extra.bin", 2, 'x'),
		testutil.File("games/y/data.bin", 3, 'y'),
		testutil.File("games/z/data.bin", 3, 'z'),
		testutil.File("shared/one.ini", 1, 's'),
		testutil.File("shared/two.ini", 1, 's'),
	})

	rules := classifier.RuleSet{Rules: []classifier.Rule{classifier.MustRule("games", `^games/(?P<item>[^/]+)/`)}}
	job := Job{ID: "job-1", Archives: []JobArchive{{
		Path:   "/src/bundle.zip",
		Name:   "bundle.zip",
		Filter: NewFilter(rules, []string{"x"}),
	}}}

	res, err := NewEngine(f.src, f.dst).Extract(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 4, res.EntriesWritten)
	assert.Equal(t, 2, res.EntriesFiltered)
	assert.True(t, f.exists(t, "games/x/data.bin"))
	assert.True(t, f.exists(t, "games/x/extra.bin"))
	assert.True(t, f.exists(t, "shared/one.ini"))
	assert.True(t, f.exists(t, "shared/two.ini"))
	assert.False(t, f.exists(t, "games/y"))
	assert.False(t, f.exists(t, "games/z"))
}

func TestExtract_PackScenario(t *testing.T) {
	f := newFixture(t)
	testutil.WriteZip(t, f.srcFs, "/src/pack.zip", []testutil.ZipEntry{
		testutil.File("roms/mario.zip", 10, 'm'),
		testutil.File("roms/luigi.zip", 20, 'l'),
		testutil.File("config/shared.ini", 5, 'c'),
	})

	inspector := archive.NewInspector(f.srcFs)
	a, err := inspector.Inspect(context.Background(), "/src/pack.zip")
	require.NoError(t, err)

	rules := classifier.RuleSet{Rules: []classifier.Rule{classifier.MustRule("roms", `^roms/(?P<item>[^/]+)\.zip$`)}}
	b := classifier.ClassifyArchive(a, rules)
	assert.Equal(t, map[string]int64{"mario": 10, "luigi": 20}, b.Items)
	assert.Equal(t, int64(5), b.Shared)

	job := Job{ID: "pack", Archives: []JobArchive{{
		Path:   a.Path,
		Name:   a.Name,
		Filter: NewFilter(rules, []string{"mario"}),
		Size:   b.SelectedSize([]string{"mario"}),
	}}}

	res, err := NewEngine(inspector, f.dst).Extract(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.BytesWritten)

	assert.Len(t, f.written(t, "roms/mario.zip"), 10)
	assert.Len(t, f.written(t, "config/shared.ini"), 5)
	assert.False(t, f.exists(t, "roms/luigi.zip"))
}

func TestExtract_CancellationLeavesRemainingArchives(t *testing.T) {
	f := newFixture(t)
	writeABC(t, f.srcFs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.src.before = func(path string) {
		if filepath.Base(path) == "b.zip" {
			cancel()
		}
	}

	engine := NewEngine(f.src, f.dst)
	res, err := engine.Extract(ctx, f.job("a.zip", "b.zip", "c.zip"))
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, 0, res.Failed)
	assert.False(t, res.ProgressCleared)

	completed, err := engine.Store().Completed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.zip"}, completed)
}

func TestExtract_UnsafeEntryFailsArchive(t *testing.T) {
	f := newFixture(t)
	testutil.WriteZip(t, f.srcFs, "/src/evil.zip", []testutil.ZipEntry{
		testutil.File("../evil.bin", 3, 'e'),
	})

	res, err := NewEngine(f.src, f.dst).Extract(context.Background(), f.job("evil.zip"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	ok, err := afero.Exists(f.mem, "/evil.bin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtract_UnsafeEntryOfExcludedItemIsFiltered(t *testing.T) {
	f := newFixture(t)
	testutil.WriteZip(t, f.srcFs, "/src/bundle.zip", []testutil.ZipEntry{
		testutil.File("../evil.bin", 3, 'e'),
		testutil.File("games/good.bin", 2, 'g'),
	})

	rules := classifier.RuleSet{Rules: []classifier.Rule{classifier.MustRule("stem", `/(?P<item>[^/]+)\.bin$`)}}
	job := Job{ID: "job-1", Archives: []JobArchive{{
		Path:   "/src/bundle.zip",
		Name:   "bundle.zip",
		Filter: NewFilter(rules, []string{"good"}),
	}}}

	res, err := NewEngine(f.src, f.dst).Extract(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, 1, res.EntriesFiltered)
	assert.True(t, f.exists(t, "games/good.bin"))
}

func TestExtract_UnreadableArchiveFails(t *testing.T) {
	f := newFixture(t)
	writeABC(t, f.srcFs)
	require.NoError(t, afero.WriteFile(f.srcFs, "/src/broken.zip", []byte("not a zip"), 0o644))

	res, err := NewEngine(f.src, f.dst).Extract(context.Background(), f.job("broken.zip", "a.zip"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Extracted)
	assert.True(t, f.exists(t, "a/1.bin"))
}

func TestExtract_SkipsProgressFileEntry(t *testing.T) {
	f := newFixture(t)
	testutil.WriteZip(t, f.srcFs, "/src/a.zip", []testutil.ZipEntry{
		testutil.File(progress.FileName, 4, 'p'),
		testutil.File("a/1.bin", 1, 'x'),
	})

	engine := NewEngine(f.src, f.dst)
	res, err := engine.Extract(context.Background(), f.job("a.zip"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.EntriesWritten)
	assert.True(t, res.ProgressCleared)
}

type recordingReporter struct {
	values []int
}

func (r *recordingReporter) UpdateProgress(_ string, percentage int) {
	r.values = append(r.values, percentage)
}

func TestExtract_ReportsProgress(t *testing.T) {
	f := newFixture(t)
	writeABC(t, f.srcFs)

	reporter := &recordingReporter{}
	job := f.job("a.zip", "b.zip")
	for i := range job.Archives {
		job.Archives[i].Size = 12
	}

	_, err := NewEngine(f.src, f.dst, WithReporter(reporter)).Extract(context.Background(), job)
	require.NoError(t, err)

	require.NotEmpty(t, reporter.values)
	assert.Equal(t, 100, reporter.values[len(reporter.values)-1])
	assert.IsNonDecreasing(t, reporter.values)
}

func TestExtract_ProgressNeverGoesBackwardsWhenSizeIsLow(t *testing.T) {
	f := newFixture(t)
	writeABC(t, f.srcFs)
	testutil.WriteZip(t, f.srcFs, "/src/big.zip", []testutil.ZipEntry{
		testutil.File("big/1.bin", 20, 'b'),
		testutil.File("big/2.bin", 20, 'b'),
	})

	reporter := &recordingReporter{}
	job := Job{ID: "job-1", Archives: []JobArchive{
		{Path: "/src/big.zip", Name: "big.zip", Size: 10},
		{Path: "/src/a.zip", Name: "a.zip", Size: 12},
	}}

	res, err := NewEngine(f.src, f.dst, WithReporter(reporter)).Extract(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, int64(52), res.BytesWritten)

	require.NotEmpty(t, reporter.values)
	assert.Equal(t, 100, reporter.values[len(reporter.values)-1])
	assert.IsNonDecreasing(t, reporter.values)
}

func TestFilter_NilKeepsEverything(t *testing.T) {
	var f *Filter
	assert.True(t, f.Keep("anything"))
}
