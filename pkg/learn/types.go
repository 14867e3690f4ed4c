package learn

// Name is a user's display name.
type Name struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// User identifies the authenticated user.
type User struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Name     Name   `json:"name"`
}

// Term is an academic term a course belongs to.
type Term struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Course is one course the user is enrolled in. Term and Instructor are
// best-effort enrichments and may be absent.
type Course struct {
	ID         string `json:"id"`
	ExternalID string `json:"courseId"`
	Name       string `json:"name"`
	Term       *Term  `json:"term,omitempty"`
	Instructor string `json:"instructor,omitempty"`
}

// ContentItem is one node of a course's content tree. Children are fetched
// lazily, only when HasChildren is set.
type ContentItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	HasChildren bool   `json:"hasChildren"`
	Body        string `json:"body,omitempty"`
}

// Attachment is a downloadable file hanging off a content node.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

// Download is the result of fetching one attachment. FileName comes from the
// Content-Disposition header, which may differ from the attachment metadata.
type Download struct {
	Data     []byte
	FileName string
}

// Response envelopes.

type membership struct {
	CourseID string `json:"courseId"`
	Course   *struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		TermID string `json:"termId"`
	} `json:"course"`
}

type paging struct {
	NextPage string `json:"nextPage"`
}

type membershipPage struct {
	Results []membership `json:"results"`
	Paging  paging       `json:"paging"`
}

type termResult struct {
	Name string `json:"name"`
}

type rosterEntry struct {
	UserID       string `json:"userId"`
	CourseRoleID string `json:"courseRoleId"`
}

type rosterPage struct {
	Results []rosterEntry `json:"results"`
}

type rosterMember struct {
	User *struct {
		Name *Name `json:"name"`
	} `json:"user"`
}

type contentPage struct {
	Results []ContentItem `json:"results"`
}

type attachmentPage struct {
	Results []Attachment `json:"results"`
}
