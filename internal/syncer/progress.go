package syncer

import "time"

// Phase identifies the stage a progress event belongs to.
type Phase string

const (
	PhaseScanning    Phase = "scanning"
	PhaseDownloading Phase = "downloading"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// Progress is one advisory progress event. During scanning, Current/Total
// count courses and CurrentFile is the course name. During downloading they
// count files; which file is "current" races between workers and is for
// display only.
type Progress struct {
	Phase       Phase
	Current     int
	Total       int
	CurrentFile string
	Err         error
}

// CourseResult groups the files downloaded for one course.
type CourseResult struct {
	CourseName string
	Files      []string
}

// Result is the terminal value of one sync pass.
type Result struct {
	TotalDownloaded int
	TotalScanned    int
	Courses         []CourseResult
	Duration        time.Duration
}
