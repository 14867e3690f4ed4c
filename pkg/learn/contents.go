package learn

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"go.uber.org/zap"
)

// Contents returns the top-level content nodes of a course. Request failures
// degrade to an empty list; content discovery is best-effort per node.
func (c *Client) Contents(ctx context.Context, courseID string) ([]ContentItem, error) {
	var page contentPage
	path := fmt.Sprintf("%s/courses/%s/contents", apiBase, courseID)
	if err := c.getJSON(ctx, path, &page); err != nil {
		c.log.Debug("contents fetch failed", zap.String("course", courseID), zap.Error(err))
		return nil, nil
	}
	return page.Results, nil
}

// Children returns the child nodes of a content node, or an empty list on
// failure.
func (c *Client) Children(ctx context.Context, courseID, contentID string) ([]ContentItem, error) {
	var page contentPage
	path := fmt.Sprintf("%s/courses/%s/contents/%s/children", apiBase, courseID, contentID)
	if err := c.getJSON(ctx, path, &page); err != nil {
		c.log.Debug("children fetch failed",
			zap.String("course", courseID),
			zap.String("content", contentID),
			zap.Error(err))
		return nil, nil
	}
	return page.Results, nil
}

// Attachments returns the attachments of a content node, or an empty list on
// failure.
func (c *Client) Attachments(ctx context.Context, courseID, contentID string) ([]Attachment, error) {
	var page attachmentPage
	path := fmt.Sprintf("%s/courses/%s/contents/%s/attachments", apiBase, courseID, contentID)
	if err := c.getJSON(ctx, path, &page); err != nil {
		c.log.Debug("attachments fetch failed",
			zap.String("course", courseID),
			zap.String("content", contentID),
			zap.Error(err))
		return nil, nil
	}
	return page.Results, nil
}

// DownloadFile fetches the bytes of one attachment. The filename comes from
// the Content-Disposition header, falling back to "unknown" when the header
// is absent or unparseable.
func (c *Client) DownloadFile(ctx context.Context, courseID, contentID, attachmentID string) (Download, error) {
	path := fmt.Sprintf("%s/courses/%s/contents/%s/attachments/%s/download", apiBase, courseID, contentID, attachmentID)

	data, header, err := c.getRaw(ctx, path)
	if err != nil {
		return Download{}, err
	}

	return Download{
		Data:     data,
		FileName: dispositionFileName(header.Get("Content-Disposition")),
	}, nil
}

// dispositionFileName extracts the filename parameter from a
// Content-Disposition value, accepting both the quoted and unquoted forms.
func dispositionFileName(disposition string) string {
	if disposition == "" {
		return "unknown"
	}

	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := strings.Trim(params["filename"], `"'`); name != "" {
			return name
		}
	}

	// Some servers emit values ParseMediaType rejects (unquoted names with
	// spaces, stray semicolons). Fall back to a manual scan.
	for _, part := range strings.Split(disposition, ";") {
		part = strings.TrimSpace(part)
		rest, ok := strings.CutPrefix(part, "filename=")
		if !ok {
			continue
		}
		if name := strings.Trim(rest, `"'`); name != "" {
			return name
		}
	}
	return "unknown"
}
