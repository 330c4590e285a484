package progress

// Tracker shows the visual position of a run.
type Tracker interface {
	// Start shows the tracker for total records with position already done.
	Start(total, position int) error
	// Advance moves the position forward by one record.
	Advance()
	// Finish finalizes the tracker. Later calls to Advance are ignored.
	Finish()
}

// NopTracker is a Tracker that displays nothing.
type NopTracker struct{}

func (NopTracker) Start(int, int) error { return nil }
func (NopTracker) Advance()             {}
func (NopTracker) Finish()              {}
