package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xueke/download-client/internal/model"
)

// fakeDownloader writes canned content, optionally failing some links.
type fakeDownloader struct {
	mu       sync.Mutex
	failing  map[string]int // link -> remaining failures
	requests []string
}

func (d *fakeDownloader) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	d.mu.Lock()
	d.requests = append(d.requests, url)
	if remaining, ok := d.failing[url]; ok && remaining > 0 {
		d.failing[url] = remaining - 1
		d.mu.Unlock()
		return errors.New("simulated failure")
	}
	d.mu.Unlock()

	content := []byte("content of " + url)
	if err := os.WriteFile(destPath, content, 0644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(int64(len(content)), int64(len(content)))
	}
	return nil
}

func (d *fakeDownloader) requestCount(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.requests {
		if r == url {
			n++
		}
	}
	return n
}

func testTask(links ...string) *model.Task {
	return &model.Task{
		TaskID:      "t1",
		Status:      model.StatusCompleted,
		DirectLinks: links,
	}
}

func TestFetchTask_DownloadsAllLinks(t *testing.T) {
	dir := t.TempDir()
	fetcher := NewFetcher(&fakeDownloader{}, Options{Dir: dir}, nil)

	task := testTask(
		"https://cdn.example.com/files/a.zip",
		"https://cdn.example.com/files/b.zip",
	)
	if err := fetcher.FetchTask(context.Background(), task); err != nil {
		t.Fatalf("FetchTask() error = %v", err)
	}

	for _, name := range []string{"a.zip", "b.zip"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}

	received, total, bytes := fetcher.Progress()
	if received != 2 || total != 2 {
		t.Errorf("progress = %d/%d, want 2/2", received, total)
	}
	if bytes == 0 {
		t.Error("byte counter should advance")
	}
}

func TestFetchTask_RetriesThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	link := "https://cdn.example.com/files/flaky.zip"
	dl := &fakeDownloader{failing: map[string]int{link: 2}}

	var events []ProgressEvent
	var mu sync.Mutex
	fetcher := NewFetcher(dl, Options{
		Dir:           dir,
		MaxRetries:    3,
		RetryCooldown: 0.001,
	}, func(e ProgressEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	if err := fetcher.FetchTask(context.Background(), testTask(link)); err != nil {
		t.Fatalf("FetchTask() error = %v", err)
	}
	if got := dl.requestCount(link); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "flaky.zip")); err != nil {
		t.Errorf("file missing after retries: %v", err)
	}
}

func TestFetchTask_SkipsExhaustedLink(t *testing.T) {
	dir := t.TempDir()
	bad := "https://cdn.example.com/files/bad.zip"
	good := "https://cdn.example.com/files/good.zip"
	dl := &fakeDownloader{failing: map[string]int{bad: 100}}

	var errorsSeen int
	var mu sync.Mutex
	fetcher := NewFetcher(dl, Options{
		Dir:           dir,
		MaxRetries:    2,
		RetryCooldown: 0.001,
	}, func(e ProgressEvent) {
		if e.Level == LevelError {
			mu.Lock()
			errorsSeen++
			mu.Unlock()
		}
	})

	if err := fetcher.FetchTask(context.Background(), testTask(bad, good)); err != nil {
		t.Fatalf("one bad link must not fail the batch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "good.zip")); err != nil {
		t.Errorf("good file missing: %v", err)
	}
	if errorsSeen != 1 {
		t.Errorf("error events = %d, want 1", errorsSeen)
	}

	received, total, _ := fetcher.Progress()
	if received != 1 || total != 2 {
		t.Errorf("progress = %d/%d, want 1/2", received, total)
	}
}

func TestFetchTask_NoLinks(t *testing.T) {
	fetcher := NewFetcher(&fakeDownloader{}, Options{Dir: t.TempDir()}, nil)

	if err := fetcher.FetchTask(context.Background(), testTask()); err == nil {
		t.Error("FetchTask() with no links should fail")
	}
	if err := fetcher.FetchTask(context.Background(), nil); err == nil {
		t.Error("FetchTask(nil) should fail")
	}
}

func TestFetchTask_CancelledContext(t *testing.T) {
	link := "https://cdn.example.com/files/slow.zip"
	dl := &fakeDownloader{failing: map[string]int{link: 100}}
	fetcher := NewFetcher(dl, Options{
		Dir:           t.TempDir(),
		MaxRetries:    50,
		RetryCooldown: 10, // long cooldown, cancellation must cut it short
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	fetcher.FetchTask(ctx, testTask(link))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancelled fetch took %v", elapsed)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		link  string
		index int
		want  string
	}{
		{"https://cdn.example.com/files/report.pdf", 0, "report.pdf"},
		{"https://cdn.example.com/a/b/c.tar.gz", 4, "c.tar.gz"},
		{"https://cdn.example.com/", 0, "file_001"},
		{"https://cdn.example.com", 2, "file_003"},
		{"://not a url", 9, "file_010"},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			if got := fileName(tt.link, tt.index); got != tt.want {
				t.Errorf("fileName(%q, %d) = %q, want %q", tt.link, tt.index, got, tt.want)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.MaxConcurrent != 3 || o.MaxRetries != 3 {
		t.Errorf("defaults = %+v", o)
	}
	if o.RetryCooldown != 0.5 || o.RetryExponent != 2 {
		t.Errorf("retry defaults = %+v", o)
	}
}

func TestFetchTask_ManyLinksBoundedConcurrency(t *testing.T) {
	dir := t.TempDir()
	dl := &fakeDownloader{}
	fetcher := NewFetcher(dl, Options{Dir: dir, MaxConcurrent: 2}, nil)

	links := make([]string, 10)
	for i := range links {
		links[i] = fmt.Sprintf("https://cdn.example.com/files/f%02d.zip", i)
	}

	if err := fetcher.FetchTask(context.Background(), testTask(links...)); err != nil {
		t.Fatalf("FetchTask() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 {
		t.Errorf("downloaded files = %d, want 10", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "f") {
			t.Errorf("unexpected file %s", e.Name())
		}
	}
}
