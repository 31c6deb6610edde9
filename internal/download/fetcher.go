package download

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/xueke/download-client/internal/model"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a fetch progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Downloader streams one URL to a local file. *api.Client implements it.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error
}

// Options configures a Fetcher.
type Options struct {
	// Dir is the destination directory. Required.
	Dir string

	// MaxConcurrent bounds parallel downloads. Zero means 3.
	MaxConcurrent int

	// MaxRetries is how many attempts each file gets. Zero means 3.
	MaxRetries int

	// RetryCooldown is the base retry delay in seconds. Zero means 0.5.
	RetryCooldown float64

	// RetryExponent grows the delay per attempt. Zero means 2.
	RetryExponent float64
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 3
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryCooldown <= 0 {
		o.RetryCooldown = 0.5
	}
	if o.RetryExponent <= 0 {
		o.RetryExponent = 2
	}
	return o
}

// Fetcher downloads a completed task's direct links to a local directory.
type Fetcher struct {
	client Downloader
	opts   Options

	totalFiles      int32
	downloadedFiles int32
	receivedBytes   int64

	onProgress func(ProgressEvent)
}

// NewFetcher creates a Fetcher writing into opts.Dir.
func NewFetcher(client Downloader, opts Options, onProgress func(ProgressEvent)) *Fetcher {
	return &Fetcher{
		client:     client,
		opts:       opts.withDefaults(),
		onProgress: onProgress,
	}
}

// FetchTask downloads every direct link of the task.
//
// Files are fetched concurrently up to MaxConcurrent, each with retries and
// an exponentially growing cooldown. A file that fails all attempts is
// reported via the progress callback and skipped; FetchTask returns an
// error only when the task has no links, the directory cannot be created,
// or the context is cancelled.
func (f *Fetcher) FetchTask(ctx context.Context, task *model.Task) error {
	if task == nil || len(task.DirectLinks) == 0 {
		return fmt.Errorf("task has no direct links to fetch")
	}

	if err := os.MkdirAll(f.opts.Dir, 0755); err != nil {
		f.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError})
		return err
	}

	atomic.StoreInt32(&f.totalFiles, int32(len(task.DirectLinks)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.MaxConcurrent)

	for i, link := range task.DirectLinks {
		i, link := i, link // capture
		g.Go(func() error {
			dest := filepath.Join(f.opts.Dir, fileName(link, i))
			if err := f.fetchOne(ctx, link, dest); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				f.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", link, err), Level: LevelError})
				return nil // Continue with other files
			}
			atomic.AddInt32(&f.downloadedFiles, 1)
			f.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(dest)), Level: LevelVerbose})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	done := atomic.LoadInt32(&f.downloadedFiles)
	if int(done) == len(task.DirectLinks) {
		f.progress(ProgressEvent{Message: fmt.Sprintf("Fetched all %d files for task %s", done, task.TaskID), Level: LevelSuccess})
	} else {
		f.progress(ProgressEvent{Message: fmt.Sprintf("Fetched %d/%d files for task %s", done, len(task.DirectLinks), task.TaskID), Level: LevelWarning})
	}
	return nil
}

// Progress returns current fetch progress.
func (f *Fetcher) Progress() (filesreceived, filesTotal int32, bytes int64) {
	return atomic.LoadInt32(&f.downloadedFiles), atomic.LoadInt32(&f.totalFiles), atomic.LoadInt64(&f.receivedBytes)
}

func (f *Fetcher) fetchOne(ctx context.Context, link, dest string) error {
	var err error
	var last int64
	for tries := 0; tries < f.opts.MaxRetries; tries++ {
		last = 0
		err = f.client.DownloadFile(ctx, link, dest, func(written, total int64) {
			atomic.AddInt64(&f.receivedBytes, written-last)
			last = written
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		f.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s", tries+1, f.opts.MaxRetries, link), Level: LevelWarning})
		f.waitForRetry(ctx, tries)
	}
	return err
}

func (f *Fetcher) waitForRetry(ctx context.Context, tries int) {
	cooldown := f.opts.RetryCooldown * math.Pow(f.opts.RetryExponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
	}
}

func (f *Fetcher) progress(event ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(event)
	}
}

// fileName derives a local file name from a direct link, falling back to a
// positional name when the URL has no usable path.
func fileName(link string, index int) string {
	u, err := url.Parse(link)
	if err == nil {
		if base := filepath.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return fmt.Sprintf("file_%03d", index+1)
}
