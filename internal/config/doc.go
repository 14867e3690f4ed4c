// Package config defines configuration for the bbsync CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (BBSYNC_ prefix)
//   - YAML configuration file
//
// # Structure
//
//	type Config struct {
//	    BaseURL          string
//	    SyncDir          string
//	    DestURL          string
//	    Workers          int
//	    Timeout          time.Duration
//	    EnabledCourses   []string
//	    CourseAliases    map[string]string
//	    AutoSyncInterval time.Duration
//	}
//
// DestURL is a gocloud bucket URL; when empty it is derived from SyncDir as
// a file:// URL, which is the normal local-mirror case.
package config
