package progress

import "pstitle/internal/models"

// Event is one item on the merged stream: either Progress or Interrupt.
type Event interface {
	event()
}

// Progress reports that one record finished its ordered stages.
type Progress struct {
	Outcome models.Outcome
}

// Interrupt reports an external cancellation request.
type Interrupt struct{}

func (Progress) event()  {}
func (Interrupt) event() {}
