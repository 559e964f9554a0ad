package archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

// fakeSite serves canned HTML by URL and counts sessions.
type fakeSite struct {
	mu       sync.Mutex
	pages    map[string]string
	navErr   map[string]error
	visited  []string
	exports  int
	exported []string

	opened atomic.Int32
	closed atomic.Int32

	// inFlight and peak track concurrent open sessions.
	inFlight atomic.Int32
	peak     atomic.Int32

	exportErr  error
	exportBody []byte
	scrolls    []time.Duration
}

func newFakeSite() *fakeSite {
	return &fakeSite{pages: map[string]string{}, navErr: map[string]error{}}
}

func (f *fakeSite) Open(context.Context) (Session, error) {
	return f.newSession(), nil
}

func (f *fakeSite) OpenRender(context.Context) (RenderSession, error) {
	return f.newSession(), nil
}

func (f *fakeSite) newSession() *fakeSession {
	f.opened.Add(1)
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return &fakeSession{site: f}
}

func (f *fakeSite) visits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visited...)
}

type fakeSession struct {
	site    *fakeSite
	current string
	closed  bool
}

func (s *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) error {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	s.site.visited = append(s.site.visited, url)
	if err := s.site.navErr[url]; err != nil {
		return err
	}
	if _, ok := s.site.pages[url]; !ok {
		return fmt.Errorf("no page at %s", url)
	}
	s.current = url
	return nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	return s.site.pages[s.current], nil
}

func (s *fakeSession) HideNonContent(context.Context) error { return nil }

func (s *fakeSession) ScrollToBottom(_ context.Context, within time.Duration) error {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	s.site.scrolls = append(s.site.scrolls, within)
	return nil
}

func (s *fakeSession) ExportFixed(context.Context, ExportOptions) ([]byte, error) {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	if s.site.exportErr != nil {
		return nil, s.site.exportErr
	}
	s.site.exports++
	s.site.exported = append(s.site.exported, s.current)
	if s.site.exportBody != nil {
		return s.site.exportBody, nil
	}
	return []byte("%PDF " + s.current), nil
}

func (s *fakeSession) Close() error {
	if s.closed {
		return errors.New("closed twice")
	}
	s.closed = true
	s.site.inFlight.Add(-1)
	s.site.closed.Add(1)
	return nil
}

// memStore keeps objects in memory.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	fail    map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}, fail: map[string]error{}}
}

func (m *memStore) PutObject(_ context.Context, path, contentType string, data io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[path]; err != nil {
		return "", err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.objects[path] = b
	m.types[path] = contentType
	return "mem://" + path, nil
}

func (m *memStore) get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	return b, ok
}

// recordingReporter stores each progress event as a line.
type recordingReporter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingReporter) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingReporter) RunStarted(w Writer) {
	r.add("run %s %d", w.Name, w.ArticleCount)
}

func (r *recordingReporter) PageStarted(p ListingPage) {
	r.add("page start %d", p.Order)
}

func (r *recordingReporter) PageDone(p ListingPage, n int) {
	r.add("page done %d %d", p.Order, n)
}

func (r *recordingReporter) ArchiveStarted(total int) {
	r.add("archive %d", total)
}

func (r *recordingReporter) ArticleStarted(ref ArticleReference) {
	r.add("article start %d", ref.Index)
}

func (r *recordingReporter) ArticleDone(a Artifact) {
	r.add("article done %s", a.Path)
}

func (r *recordingReporter) Completed() {
	r.add("complete")
}

// noPause skips the courtesy delay and counts calls.
type noPause struct {
	calls atomic.Int32
}

func (p *noPause) Pause(context.Context, time.Duration) error {
	p.calls.Add(1)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// MockCatalog mocks the Catalog interface.
type MockCatalog struct {
	mock.Mock
}

// RecordArtifact satisfies the Catalog interface for the mock.
func (m *MockCatalog) RecordArtifact(ctx context.Context, rec CatalogRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func testConfig() Config {
	return Config{
		BaseURL:            "https://mery.jp",
		PageSize:           20,
		Interval:           0,
		HarvestConcurrency: 3,
		ArchiveConcurrency: 1,
		ListingTimeout:     time.Second,
		ArticleTimeout:     time.Second,
		Extension:          ".pdf",
		Export: ExportOptions{
			Scale:           1.3,
			PrintBackground: true,
			PageFormat:      "A4",
			MarginLeft:      "2cm",
			Media:           "screen",
		},
	}
}

func boxHTML(name string, count int) string {
	return fmt.Sprintf(`<html><body>
<div id="topBar"><ul><li><a href="/"><span>MERY</span></a></li><li><a href="#"><span>%s</span></a></li></ul></div>
<div id="column_content"><section><div>つくった記事</div><div>%d件</div></section></div>
</body></html>`, name, count)
}

func listingHTML(hrefs ...string) string {
	items := ""
	for _, h := range hrefs {
		items += fmt.Sprintf(`<div class="article_list_text"><a href="%s">t</a></div>`, h)
	}
	return `<html><body><div id="column_content"><div class="box-article-list">` + items + `</div></div></body></html>`
}

func articleHTML(date, title string) string {
	return fmt.Sprintf(`<html><body><div id="article">
<div class="info"><p>作成：%s by w</p></div>
<div class="articleArea"><h1>%s</h1></div>
</div></body></html>`, date, title)
}
