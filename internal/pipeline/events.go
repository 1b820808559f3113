package pipeline

import "time"

// Completion is the event payload published after a successful run, so
// downstream consumers can pick up the freshly merged index.
type Completion struct {
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	OutputDir  string    `json:"output_dir"`
	Documents  int       `json:"documents"`
	Indexed    int       `json:"indexed"`
	Skipped    int       `json:"skipped"`
	Segments   int       `json:"segments"`
	Failures   int       `json:"failures"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// Completion builds the event payload for a finished run.
func (s *RunStats) Completion(runID string) Completion {
	return Completion{
		RunID:      runID,
		Mode:       s.Mode,
		OutputDir:  s.OutputDir,
		Documents:  s.Documents,
		Indexed:    s.Indexed,
		Skipped:    s.Skipped,
		Segments:   s.Segments,
		Failures:   len(s.Failures),
		ElapsedMS:  s.Elapsed.Milliseconds(),
		FinishedAt: time.Now().UTC(),
	}
}
