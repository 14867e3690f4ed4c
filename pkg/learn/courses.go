package learn

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// excludedRoles are course roles that never count as instructors.
var excludedRoles = map[string]bool{
	"Student":           true,
	"Guest":             true,
	"CourseBuilder":     true,
	"BbSpectator":       true,
	"TeachingAssistant": true,
	"Grader":            true,
}

// CurrentUser fetches the identity of the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.getJSON(ctx, apiBase+"/users/me", &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Courses enumerates the user's course memberships, following the
// pagination cursor to the end and deduplicating by course id. Each course
// is then enriched with its term name and instructor names; enrichment is
// best-effort and failures leave the field absent.
func (c *Client) Courses(ctx context.Context, userID string) ([]Course, error) {
	path := fmt.Sprintf("%s/users/%s/courses?limit=100&fields=courseId,course.name,course.id,course.termId", apiBase, userID)

	var courses []Course
	seen := make(map[string]bool)

	for path != "" {
		var page membershipPage
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, err
		}

		for _, m := range page.Results {
			if m.Course == nil || seen[m.Course.ID] {
				continue
			}
			seen[m.Course.ID] = true

			course := Course{
				ID:         m.Course.ID,
				ExternalID: m.CourseID,
				Name:       m.Course.Name,
			}
			if course.Name == "" {
				course.Name = m.CourseID
			}
			if m.Course.TermID != "" {
				course.Term = &Term{ID: m.Course.TermID}
			}
			courses = append(courses, course)
		}

		path = page.Paging.NextPage
	}

	c.resolveTermNames(ctx, courses)
	c.resolveInstructors(ctx, courses)

	return courses, nil
}

// resolveTermNames fills in human-readable term names, looking each distinct
// term up once. A failed lookup leaves the term id as the name.
func (c *Client) resolveTermNames(ctx context.Context, courses []Course) {
	names := make(map[string]string)
	for _, course := range courses {
		if course.Term == nil {
			continue
		}
		if _, done := names[course.Term.ID]; done {
			continue
		}

		var term termResult
		if err := c.getJSON(ctx, apiBase+"/terms/"+course.Term.ID, &term); err != nil || term.Name == "" {
			if err != nil {
				c.log.Debug("term lookup failed", zap.String("term", course.Term.ID), zap.Error(err))
			}
			names[course.Term.ID] = course.Term.ID
			continue
		}
		names[course.Term.ID] = term.Name
	}

	for i := range courses {
		if courses[i].Term != nil {
			courses[i].Term.Name = names[courses[i].Term.ID]
		}
	}
}

// resolveInstructors joins the display names of each course's non-student
// roster members into the Instructor field. Lookups run concurrently,
// bounded by InstructorLookupLimit, and any failure silently leaves the
// course without an instructor.
func (c *Client) resolveInstructors(ctx context.Context, courses []Course) {
	var g errgroup.Group
	g.SetLimit(c.opts.InstructorLookupLimit)

	for i := range courses {
		course := &courses[i]
		g.Go(func() error {
			course.Instructor = c.instructorNames(ctx, course.ID)
			return nil
		})
	}

	g.Wait()
}

func (c *Client) instructorNames(ctx context.Context, courseID string) string {
	path := fmt.Sprintf("%s/courses/%s/users?limit=200&fields=userId,courseRoleId", apiBase, courseID)

	var roster rosterPage
	if err := c.getJSON(ctx, path, &roster); err != nil {
		c.log.Debug("roster lookup failed", zap.String("course", courseID), zap.Error(err))
		return ""
	}

	var names []string
	seen := make(map[string]bool)
	for _, entry := range roster.Results {
		if entry.UserID == "" || entry.CourseRoleID == "" || excludedRoles[entry.CourseRoleID] {
			continue
		}

		var member rosterMember
		memberPath := fmt.Sprintf("%s/courses/%s/users/%s?expand=user", apiBase, courseID, entry.UserID)
		if err := c.getJSON(ctx, memberPath, &member); err != nil {
			c.log.Debug("member lookup failed",
				zap.String("course", courseID),
				zap.String("user", entry.UserID),
				zap.Error(err))
			continue
		}
		if member.User == nil || member.User.Name == nil {
			continue
		}

		full := strings.TrimSpace(member.User.Name.Given + " " + member.User.Name.Family)
		if full != "" && !seen[full] {
			seen[full] = true
			names = append(names, full)
		}
	}

	return strings.Join(names, ", ")
}
