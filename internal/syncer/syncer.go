package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob"

	"github.com/Clav3rbot/BlackBoardSync/internal/scanner"
	"github.com/Clav3rbot/BlackBoardSync/pkg/learn"
)

// Catalog is the LMS surface a sync pass needs: the scanner's read methods
// plus file downloads. *learn.Client satisfies it.
type Catalog interface {
	scanner.Catalog
	DownloadFile(ctx context.Context, courseID, contentID, attachmentID string) (learn.Download, error)
}

// Options configures a Syncer.
type Options struct {
	// Workers is the number of concurrent download workers.
	// Default: 3
	Workers int

	// Aliases maps course ids to folder names overriding the course name.
	Aliases map[string]string

	// OnProgress receives progress events. It is never called concurrently.
	OnProgress func(Progress)

	// Logger receives scan/download failure details.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// Syncer executes sync passes against one destination bucket.
// Only one pass should run at a time; callers serialize.
type Syncer struct {
	catalog Catalog
	bucket  *blob.Bucket
	opts    Options
	log     *zap.Logger

	aborted atomic.Bool
	emitMu  sync.Mutex
}

// New creates a Syncer writing into bucket.
func New(catalog Catalog, bucket *blob.Bucket, opts Options) *Syncer {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{catalog: catalog, bucket: bucket, opts: opts, log: log}
}

// Abort requests cooperative cancellation of the running pass. The scan loop
// and every worker observe the flag on their next iteration; an in-flight
// download is not interrupted.
func (s *Syncer) Abort() {
	s.aborted.Store(true)
}

func (s *Syncer) emit(p Progress) {
	if s.opts.OnProgress == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.opts.OnProgress(p)
}

// folderFor picks the alias-or-name top folder for a course.
func (s *Syncer) folderFor(course learn.Course) string {
	if alias, ok := s.opts.Aliases[course.ID]; ok && alias != "" {
		return scanner.Sanitize(alias)
	}
	return scanner.Sanitize(course.Name)
}

// SyncAll runs one full pass over courses and always returns a Result; scan
// and download failures reduce the totals instead of failing the pass. The
// only error returned is a cancelled context.
func (s *Syncer) SyncAll(ctx context.Context, courses []learn.Course) (Result, error) {
	s.aborted.Store(false)
	start := time.Now()

	s.emit(Progress{Phase: PhaseScanning, Current: 0, Total: len(courses)})

	sc := scanner.New(s.catalog, s.aborted.Load)

	var files []scanner.File
	for i, course := range courses {
		if s.aborted.Load() {
			return Result{}, nil
		}

		s.emit(Progress{
			Phase:       PhaseScanning,
			Current:     i + 1,
			Total:       len(courses),
			CurrentFile: course.Name,
		})

		found, err := sc.Scan(ctx, course, s.folderFor(course))
		if errors.Is(err, scanner.ErrAborted) {
			return Result{}, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			s.log.Warn("course scan failed", zap.String("course", course.Name), zap.Error(err))
			continue
		}
		files = append(files, found...)
	}

	// Delta: existence at the destination is the sole skip signal. The check
	// runs once, before the pool starts, so no two workers can claim the
	// same path within a pass.
	var pending []scanner.File
	for _, f := range files {
		exists, err := s.bucket.Exists(ctx, f.RelativePath)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			s.log.Warn("existence check failed", zap.String("path", f.RelativePath), zap.Error(err))
			exists = false
		}
		if !exists {
			pending = append(pending, f)
		}
	}

	if len(pending) == 0 {
		s.emit(Progress{Phase: PhaseComplete, Current: 0, Total: 0})
		return Result{
			TotalScanned: len(files),
			Duration:     time.Since(start),
		}, nil
	}

	downloaded := s.download(ctx, pending)

	result := Result{
		TotalDownloaded: len(downloaded),
		TotalScanned:    len(files),
		Courses:         groupByCourse(downloaded),
		Duration:        time.Since(start),
	}

	s.emit(Progress{Phase: PhaseComplete, Current: result.TotalDownloaded, Total: len(pending)})
	return result, nil
}

// download drains pending with a fixed worker pool and returns the files
// that were fetched and written successfully.
func (s *Syncer) download(ctx context.Context, pending []scanner.File) []scanner.File {
	jobs := make(chan scanner.File, len(pending))
	for _, f := range pending {
		jobs <- f
	}
	close(jobs)

	var (
		mu        sync.Mutex
		completed []scanner.File
	)
	total := len(pending)

	workers := s.opts.Workers
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if s.aborted.Load() {
					return
				}
				f, ok := <-jobs
				if !ok {
					return
				}

				mu.Lock()
				current := len(completed)
				mu.Unlock()
				s.emit(Progress{
					Phase:       PhaseDownloading,
					Current:     current,
					Total:       total,
					CurrentFile: f.FileName,
				})

				if err := s.fetchOne(ctx, f); err != nil {
					s.log.Warn("download failed",
						zap.String("file", f.FileName),
						zap.String("course", f.CourseName),
						zap.Error(err))
					continue
				}

				mu.Lock()
				completed = append(completed, f)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return completed
}

func (s *Syncer) fetchOne(ctx context.Context, f scanner.File) error {
	dl, err := s.catalog.DownloadFile(ctx, f.CourseID, f.ContentID, f.AttachmentID)
	if err != nil {
		return err
	}

	w, err := s.bucket.NewWriter(ctx, f.RelativePath, nil)
	if err != nil {
		return err
	}
	if _, err := w.Write(dl.Data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// groupByCourse buckets completed files by course, preserving the order in
// which each course first completed a file.
func groupByCourse(files []scanner.File) []CourseResult {
	index := make(map[string]int)
	var groups []CourseResult
	for _, f := range files {
		i, ok := index[f.CourseID]
		if !ok {
			i = len(groups)
			index[f.CourseID] = i
			groups = append(groups, CourseResult{CourseName: f.CourseName})
		}
		groups[i].Files = append(groups[i].Files, f.FileName)
	}
	return groups
}
