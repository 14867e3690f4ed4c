// Package syncer runs one sync pass: scan courses, compute the delta against
// the destination, and download missing files with a bounded worker pool.
//
// # Phases
//
// Scanning walks each course's content tree sequentially, preserving course
// order in progress events. The delta then filters out every file whose
// destination key already exists; existence is the sole skip signal, no
// checksums are compared. Downloading drains a FIFO queue with a fixed pool
// of workers (default 3), writing each file to the destination bucket.
//
// # Failure policy
//
// A per-course scan failure and a per-file download failure are logged and
// skipped; neither aborts the pass. The pass always produces a Result.
//
// # Abort
//
// Abort is cooperative: a shared flag checked before each scanned node and
// each queue pop. An abort during scanning yields an all-zero Result; an
// abort during downloading stops admitting queue items but lets in-flight
// downloads finish.
package syncer
