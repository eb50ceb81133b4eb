package corpus

// Progress is one incremental loading report. Loading is a long-running,
// multi-request operation; the UI reflects partial progress through these,
// not just start/done.
type Progress struct {
	// Status is a user-facing status line (Russian, like the rest of the UI).
	Status string `json:"status"`

	FilesDiscovered int   `json:"filesDiscovered,omitempty"`
	FilesProcessed  int   `json:"filesProcessed,omitempty"`
	Bytes           int64 `json:"bytes,omitempty"`
	Records         int   `json:"records,omitempty"`
}

// ProgressFunc receives loading progress. A nil func is valid and ignored.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(p Progress) {
	if f != nil {
		f(p)
	}
}
