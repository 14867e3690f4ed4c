// Package testutils provides shared test infrastructure: a fixture Learn
// server with a full SSO handshake and REST surface, and (behind the
// integration tag) containerized S3 storage.
package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Fixture credentials accepted by the identity provider.
const (
	LMSUsername = "student"
	LMSPassword = "hunter2"
	LMSUserID   = "_42_1"

	sessionCookie = "JSESSIONID"
	sessionToken  = "fixture-session"
)

// AttachmentFixture is one downloadable file on a content node.
type AttachmentFixture struct {
	ID       string
	FileName string
	MimeType string
	Data     []byte
}

// ContentFixture is one node of a course content tree.
type ContentFixture struct {
	ID          string
	Title       string
	Children    []ContentFixture
	Attachments []AttachmentFixture
}

// CourseFixture is one enrolled course served by the fixture LMS.
type CourseFixture struct {
	ID         string
	ExternalID string
	Name       string
	TermID     string
	Instructor string // "Given Family", empty for no roster
	Contents   []ContentFixture
}

// LMS is an in-process Learn instance: a four-step SSO handshake in front of
// the public REST API, both served from one host.
type LMS struct {
	Server  *httptest.Server
	Courses []CourseFixture
	Terms   map[string]string
}

// StartLMS starts a fixture LMS. The identity provider accepts LMSUsername
// with LMSPassword; every REST route requires the session cookie the
// handshake sets.
func StartLMS(t *testing.T, courses []CourseFixture, terms map[string]string) *LMS {
	t.Helper()

	lms := &LMS{Courses: courses, Terms: terms}
	lms.Server = httptest.NewServer(lms.handler())
	t.Cleanup(lms.Server.Close)
	return lms
}

// URL returns the base URL of the fixture instance.
func (l *LMS) URL() string {
	return l.Server.URL
}

func (l *LMS) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ultra/course", func(w http.ResponseWriter, r *http.Request) {
		if hasSession(r) {
			fmt.Fprint(w, "<html><body>course list</body></html>")
			return
		}
		http.Redirect(w, r, "/sso/entry", http.StatusFound)
	})

	mux.HandleFunc("/sso/entry", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<form method="post" action="/idp/profile/SAML2/POST">
				<input type="hidden" name="SAMLRequest" value="fixture-authn-request"/>
				<input type="hidden" name="RelayState" value="fixture-relay"/>
			</form>
		</body></html>`)
	})

	mux.HandleFunc("/idp/profile/SAML2/POST", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("SAMLRequest") != "fixture-authn-request" {
			http.Error(w, "missing authn request", http.StatusBadRequest)
			return
		}
		writeLoginForm(w, "")
	})

	mux.HandleFunc("/idp/login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if _, ok := r.PostForm["_eventId_proceed"]; !ok {
			http.Error(w, "missing event id", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("j_username") != LMSUsername || r.PostForm.Get("j_password") != LMSPassword {
			writeLoginForm(w, "The username you entered cannot be identified.")
			return
		}
		fmt.Fprint(w, `<html><body>
			<form method="post" action="/saml/acs">
				<input type="hidden" name="SAMLResponse" value="fixture-assertion"/>
				<input type="hidden" name="RelayState" value="fixture-relay"/>
			</form>
		</body></html>`)
	})

	mux.HandleFunc("/saml/acs", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("SAMLResponse") != "fixture-assertion" {
			http.Error(w, "missing assertion", http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionToken, Path: "/"})
		http.Redirect(w, r, "/ultra/course", http.StatusFound)
	})

	mux.HandleFunc("/learn/api/public/v1/", l.serveAPI)

	return mux
}

func writeLoginForm(w http.ResponseWriter, errText string) {
	errHTML := ""
	if errText != "" {
		errHTML = `<p class="error">` + errText + `</p>`
	}
	fmt.Fprintf(w, `<html><body>%s
		<form method="post" action="/idp/login">
			<input type="text" name="j_username"/>
			<input type="password" name="j_password"/>
			<button type="submit" name="_eventId_proceed">Login</button>
		</form>
	</body></html>`, errHTML)
}

func hasSession(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	return err == nil && c.Value == sessionToken
}

// serveAPI routes the REST surface by path segments under the API base.
func (l *LMS) serveAPI(w http.ResponseWriter, r *http.Request) {
	if !hasSession(r) {
		http.Error(w, `{"status":401}`, http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/learn/api/public/v1/")
	seg := strings.Split(rest, "/")

	switch {
	case rest == "users/me":
		writeJSON(w, map[string]any{
			"id":       LMSUserID,
			"userName": LMSUsername,
			"name":     map[string]string{"given": "Sam", "family": "Student"},
		})

	case len(seg) == 3 && seg[0] == "users" && seg[2] == "courses":
		l.serveMemberships(w)

	case len(seg) == 2 && seg[0] == "terms":
		name, ok := l.Terms[seg[1]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]string{"id": seg[1], "name": name})

	case len(seg) >= 3 && seg[0] == "courses" && seg[2] == "users":
		l.serveRoster(w, r, seg)

	case len(seg) >= 3 && seg[0] == "courses" && seg[2] == "contents":
		l.serveContents(w, r, seg)

	default:
		http.NotFound(w, r)
	}
}

func (l *LMS) serveMemberships(w http.ResponseWriter) {
	results := make([]map[string]any, 0, len(l.Courses))
	for _, c := range l.Courses {
		results = append(results, map[string]any{
			"courseId": c.ID,
			"course": map[string]string{
				"id":     c.ID,
				"name":   c.Name,
				"termId": c.TermID,
			},
		})
	}
	writeJSON(w, map[string]any{"results": results, "paging": map[string]string{}})
}

func (l *LMS) serveRoster(w http.ResponseWriter, r *http.Request, seg []string) {
	course, ok := l.course(seg[1])
	if !ok {
		http.NotFound(w, r)
		return
	}

	instructorID := "ins-" + course.ID

	// .../courses/{id}/users
	if len(seg) == 3 {
		var results []map[string]string
		if course.Instructor != "" {
			results = append(results, map[string]string{
				"userId": instructorID, "courseRoleId": "Instructor",
			})
		}
		writeJSON(w, map[string]any{"results": results})
		return
	}

	// .../courses/{id}/users/{userId}
	if seg[3] != instructorID || course.Instructor == "" {
		http.NotFound(w, r)
		return
	}
	given, family, _ := strings.Cut(course.Instructor, " ")
	writeJSON(w, map[string]any{
		"user": map[string]any{"name": map[string]string{"given": given, "family": family}},
	})
}

func (l *LMS) serveContents(w http.ResponseWriter, r *http.Request, seg []string) {
	course, ok := l.course(seg[1])
	if !ok {
		http.NotFound(w, r)
		return
	}

	// .../courses/{id}/contents
	if len(seg) == 3 {
		writeContentPage(w, course.Contents)
		return
	}

	node, ok := findContent(course.Contents, seg[3])
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	// .../contents/{id}/children
	case len(seg) == 5 && seg[4] == "children":
		writeContentPage(w, node.Children)

	// .../contents/{id}/attachments
	case len(seg) == 5 && seg[4] == "attachments":
		results := make([]map[string]string, 0, len(node.Attachments))
		for _, a := range node.Attachments {
			results = append(results, map[string]string{
				"id": a.ID, "fileName": a.FileName, "mimeType": a.MimeType,
			})
		}
		writeJSON(w, map[string]any{"results": results})

	// .../contents/{id}/attachments/{id}/download
	case len(seg) == 7 && seg[4] == "attachments" && seg[6] == "download":
		for _, a := range node.Attachments {
			if a.ID == seg[5] {
				w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
				w.Header().Set("Content-Type", a.MimeType)
				w.Write(a.Data)
				return
			}
		}
		http.NotFound(w, r)

	default:
		http.NotFound(w, r)
	}
}

func writeContentPage(w http.ResponseWriter, nodes []ContentFixture) {
	results := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, map[string]any{
			"id": n.ID, "title": n.Title, "hasChildren": len(n.Children) > 0,
		})
	}
	writeJSON(w, map[string]any{"results": results})
}

func (l *LMS) course(id string) (CourseFixture, bool) {
	for _, c := range l.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return CourseFixture{}, false
}

func findContent(nodes []ContentFixture, id string) (ContentFixture, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := findContent(n.Children, id); ok {
			return found, true
		}
	}
	return ContentFixture{}, false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
