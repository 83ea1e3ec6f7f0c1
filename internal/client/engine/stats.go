package engine

import (
	"sync"
	"time"
)

// maxRecentErrors bounds the error ring exposed to the UI inbox.
const maxRecentErrors = 50

// ErrorRecord is one entry in the recent-errors ring.
type ErrorRecord struct {
	Time    time.Time  `json:"time"`
	File    string     `json:"file,omitempty"`
	Action  SyncAction `json:"action"`
	Kind    ErrorKind  `json:"kind"`
	Message string     `json:"message"`
}

// StatsSnapshot is an immutable copy of the session counters.
type StatsSnapshot struct {
	FilesDownloaded        uint64         `json:"filesDownloaded"`
	FilesUploaded          uint64         `json:"filesUploaded"`
	FilesDownloadedSkipped uint64         `json:"filesDownloadedSkipped"`
	FilesUploadedSkipped   uint64         `json:"filesUploadedSkipped"`
	FilesProtected         uint64         `json:"filesProtected"`
	LastSync               time.Time      `json:"lastSync"`
	RecentErrors           []*ErrorRecord `json:"recentErrors"`
}

// Stats holds the monotonically increasing session counters. Counters are
// only written by the reconcile routine, the drain worker and the poller
// callback, which never run concurrently; the mutex exists for snapshot
// readers.
type Stats struct {
	mu sync.Mutex

	downloaded        uint64
	uploaded          uint64
	downloadedSkipped uint64
	uploadedSkipped   uint64
	protected         uint64
	lastSync          time.Time
	recentErrors      []*ErrorRecord
}

// NewStats creates zeroed session counters.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) IncDownloaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloaded++
}

func (s *Stats) IncUploaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded++
}

func (s *Stats) IncDownloadSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadedSkipped++
}

func (s *Stats) IncUploadSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadedSkipped++
}

func (s *Stats) IncProtected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected++
}

func (s *Stats) SetLastSync(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = t
}

// AddError appends to the recent-errors ring, evicting the oldest entry
// past the cap.
func (s *Stats) AddError(rec *ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentErrors = append(s.recentErrors, rec)
	if len(s.recentErrors) > maxRecentErrors {
		s.recentErrors = s.recentErrors[len(s.recentErrors)-maxRecentErrors:]
	}
}

// Snapshot returns a copy safe to hand to subscribers.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]*ErrorRecord, len(s.recentErrors))
	copy(errs, s.recentErrors)

	return StatsSnapshot{
		FilesDownloaded:        s.downloaded,
		FilesUploaded:          s.uploaded,
		FilesDownloadedSkipped: s.downloadedSkipped,
		FilesUploadedSkipped:   s.uploadedSkipped,
		FilesProtected:         s.protected,
		LastSync:               s.lastSync,
		RecentErrors:           errs,
	}
}
