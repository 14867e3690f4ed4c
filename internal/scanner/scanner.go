// Package scanner flattens a course's content tree into downloadable file
// descriptors with filesystem-legal destination paths.
package scanner

import (
	"context"
	"errors"
	"path"

	"github.com/Clav3rbot/BlackBoardSync/pkg/learn"
)

// ErrAborted is returned when the abort flag is observed mid-walk. Partial
// results are discarded.
var ErrAborted = errors.New("scanner: aborted")

// Catalog is the read surface the scanner needs from the LMS client.
type Catalog interface {
	Contents(ctx context.Context, courseID string) ([]learn.ContentItem, error)
	Children(ctx context.Context, courseID, contentID string) ([]learn.ContentItem, error)
	Attachments(ctx context.Context, courseID, contentID string) ([]learn.Attachment, error)
}

// File describes one remote attachment and where it belongs locally.
// Rebuilt fresh on every sync pass.
type File struct {
	CourseID     string
	CourseName   string
	ContentID    string
	AttachmentID string
	FileName     string

	// RelativePath is course folder / sanitized node titles / sanitized
	// file name, with "/" separators suitable for a bucket key.
	RelativePath string
}

// Scanner walks content trees depth-first.
type Scanner struct {
	catalog Catalog
	aborted func() bool
}

// New creates a scanner. aborted is polled before each node; nil means never
// aborted.
func New(catalog Catalog, aborted func() bool) *Scanner {
	if aborted == nil {
		aborted = func() bool { return false }
	}
	return &Scanner{catalog: catalog, aborted: aborted}
}

// Scan walks the course's content tree and returns one File per attachment.
// folder is the already-sanitized top-level course folder name.
func (s *Scanner) Scan(ctx context.Context, course learn.Course, folder string) ([]File, error) {
	contents, err := s.catalog.Contents(ctx, course.ID)
	if err != nil {
		return nil, err
	}

	var files []File
	if err := s.walk(ctx, course, contents, folder, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Scanner) walk(ctx context.Context, course learn.Course, items []learn.ContentItem, base string, files *[]File) error {
	for _, item := range items {
		if s.aborted() {
			return ErrAborted
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		attachments, err := s.catalog.Attachments(ctx, course.ID, item.ID)
		if err == nil {
			for _, att := range attachments {
				*files = append(*files, File{
					CourseID:     course.ID,
					CourseName:   course.Name,
					ContentID:    item.ID,
					AttachmentID: att.ID,
					FileName:     att.FileName,
					RelativePath: path.Join(base, Sanitize(att.FileName)),
				})
			}
		}

		if item.HasChildren {
			children, err := s.catalog.Children(ctx, course.ID, item.ID)
			if err != nil {
				continue
			}
			sub := path.Join(base, Sanitize(item.Title))
			if err := s.walk(ctx, course, children, sub, files); err != nil {
				return err
			}
		}
	}
	return nil
}
