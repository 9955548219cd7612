package dispatch

// Mode labels how a driver was bound to a delivery.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeManual   Mode = "manual"
	ModeReassign Mode = "reassign"
)

// Recorder receives dispatch outcomes for monitoring.
type Recorder interface {
	Assigned(mode Mode)
	NoDriverAvailable()
	AcceptConflict()
	NotificationFailed()
	Overdue(count int)
}

type nopRecorder struct{}

func (nopRecorder) Assigned(Mode) {}
func (nopRecorder) NoDriverAvailable() {}
func (nopRecorder) AcceptConflict() {}
func (nopRecorder) NotificationFailed() {}
func (nopRecorder) Overdue(int) {}
