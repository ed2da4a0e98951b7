package session

// Recorder receives lifecycle counts. metrics.Recorder implements it.
type Recorder interface {
	Transition(from, to Phase)
	ConnectFailed(err error)
	StaleCallback()
	Rejected()
	Disconnected(err error)
}

type nopRecorder struct{}

func (nopRecorder) Transition(Phase, Phase) {}
func (nopRecorder) ConnectFailed(error)     {}
func (nopRecorder) StaleCallback()          {}
func (nopRecorder) Rejected()               {}
func (nopRecorder) Disconnected(error)      {}
