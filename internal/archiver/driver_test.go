package archiver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDriver(t *testing.T, site *fakeSite, store *memStore, reporter *recordingReporter) *Driver {
	t.Helper()
	d, err := NewDriver(testConfig(), DriverDeps{
		Pages:    site,
		Renders:  site,
		Store:    store,
		Pauser:   &noPause{},
		Reporter: reporter,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return d
}

func TestDriverRunArchivesBox(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.pages["https://mery.jp/boxes/5"] = boxHTML("はな こ", 2)
	site.pages["https://mery.jp/boxes/5?page=1"] = listingHTML("/articles/1", "https://mery.jp/articles/2")
	site.pages["https://mery.jp/articles/1"] = articleHTML("2018.12.24", "冬のコーデ")
	site.pages["https://mery.jp/articles/2"] = articleHTML("2019.01.02", "春/夏")
	store := newMemStore()
	reporter := &recordingReporter{}

	err := newTestDriver(t, site, store, reporter).Run(context.Background(), "run-1", 5)
	require.NoError(t, err)

	manifest, ok := store.get("はな_こ/urls.csv")
	require.True(t, ok)
	assert.Equal(t, "https://mery.jp/articles/1\nhttps://mery.jp/articles/2", string(manifest))

	_, ok = store.get("はな_こ/2018.12.24_冬のコーデ.pdf")
	assert.True(t, ok)
	_, ok = store.get("はな_こ/2019.01.02_春／夏.pdf")
	assert.True(t, ok)

	assert.Equal(t, []string{
		"run はな こ 2",
		"page start 1",
		"page done 1 2",
		"archive 2",
		"article start 1",
		"article done はな_こ/2018.12.24_冬のコーデ.pdf",
		"article start 2",
		"article done はな_こ/2019.01.02_春／夏.pdf",
		"complete",
	}, reporter.lines())
	assert.Equal(t, site.opened.Load(), site.closed.Load())
}

func TestDriverRunDotNamedWriterStaysInsideRoot(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.pages["https://mery.jp/boxes/6"] = boxHTML("..", 1)
	site.pages["https://mery.jp/boxes/6?page=1"] = listingHTML("/articles/1")
	site.pages["https://mery.jp/articles/1"] = articleHTML("2018.12.24", "冬のコーデ")
	store := newMemStore()

	err := newTestDriver(t, site, store, &recordingReporter{}).Run(context.Background(), "run-1", 6)
	require.NoError(t, err)

	_, ok := store.get("．．/urls.csv")
	assert.True(t, ok)
	_, ok = store.get("．．/2018.12.24_冬のコーデ.pdf")
	assert.True(t, ok)
}

func TestDriverRunEmptyBox(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.pages["https://mery.jp/boxes/9"] = boxHTML("empty", 0)
	site.pages["https://mery.jp/boxes/9?page=1"] = listingHTML()
	store := newMemStore()
	reporter := &recordingReporter{}

	err := newTestDriver(t, site, store, reporter).Run(context.Background(), "run-2", 9)
	require.NoError(t, err)

	manifest, ok := store.get("empty/urls.csv")
	require.True(t, ok)
	assert.Empty(t, manifest)
	assert.Zero(t, site.exports)
	lines := reporter.lines()
	assert.Contains(t, lines, "archive 0")
	assert.Equal(t, "complete", lines[len(lines)-1])
}

func TestDriverRunUnknownWriter(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.pages["https://mery.jp/boxes/404"] = `<html><body><p>not found</p></body></html>`
	store := newMemStore()
	reporter := &recordingReporter{}

	err := newTestDriver(t, site, store, reporter).Run(context.Background(), "run-3", 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.objects)
	assert.Empty(t, reporter.lines())
	assert.Equal(t, []string{"https://mery.jp/boxes/404"}, site.visits())
}

func TestDriverRunInvalidCount(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.pages["https://mery.jp/boxes/3"] = `<html><body>
<div id="topBar"><ul><li>a</li><li><a><span>w</span></a></li></ul></div>
<div id="column_content"><section><div>x</div><div>many件</div></section></div>
</body></html>`

	err := newTestDriver(t, site, newMemStore(), &recordingReporter{}).Run(context.Background(), "run-4", 3)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestDriverManifestSurvivesArchiveFailure(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.pages["https://mery.jp/boxes/5"] = boxHTML("w", 2)
	site.pages["https://mery.jp/boxes/5?page=1"] = listingHTML("/articles/1", "/articles/2")
	site.pages["https://mery.jp/articles/1"] = articleHTML("2018.12.24", "one")
	site.navErr["https://mery.jp/articles/2"] = errors.New("navigation timeout")
	store := newMemStore()
	reporter := &recordingReporter{}

	err := newTestDriver(t, site, store, reporter).Run(context.Background(), "run-5", 5)
	require.Error(t, err)

	_, ok := store.get("w/urls.csv")
	assert.True(t, ok)
	_, ok = store.get("w/2018.12.24_one.pdf")
	assert.True(t, ok, "artifacts written before the failure are kept")
	assert.NotContains(t, reporter.lines(), "complete")
}

func TestDriverManifestFailureStopsRun(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.pages["https://mery.jp/boxes/5"] = boxHTML("w", 1)
	site.pages["https://mery.jp/boxes/5?page=1"] = listingHTML("/articles/1")
	store := newMemStore()
	store.fail["w/urls.csv"] = errors.New("disk full")

	err := newTestDriver(t, site, store, &recordingReporter{}).Run(context.Background(), "run-6", 5)
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, site.exports)
}

func TestNewDriverRequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := NewDriver(testConfig(), DriverDeps{})
	assert.Error(t, err)
}

func TestResolveArticleURLs(t *testing.T) {
	t.Parallel()

	urls, err := ResolveArticleURLs("https://mery.jp", []string{"/articles/1", " https://mery.jp/articles/2 ", "articles/3"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://mery.jp/articles/1",
		"https://mery.jp/articles/2",
		"https://mery.jp/articles/3",
	}, urls)
}

func TestBuildReferencesNumbersFromOne(t *testing.T) {
	t.Parallel()

	urls := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		urls = append(urls, fmt.Sprintf("https://mery.jp/%d", i))
	}
	refs := BuildReferences("w", urls)
	require.Len(t, refs, 15)
	for i, ref := range refs {
		assert.Equal(t, i+1, ref.Index)
		assert.Equal(t, urls[i], ref.URL)
		assert.Equal(t, "w", ref.WriterName)
	}
}

func TestManifestHasNoTrailingNewline(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a\nb", string(Manifest([]string{"a", "b"})))
	assert.Empty(t, Manifest(nil))
}
