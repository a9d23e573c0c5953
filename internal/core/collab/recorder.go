package collab

// Recorder receives hub activity for metrics.
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	RoomJoined(roomCount int)
	EventRelayed(event string, recipients int)
	EventDropped(reason string)
	SlowConsumerDisconnected()
}

// Drop reasons reported to Recorder.EventDropped.
const (
	DropUnknownConnection = "unknown_connection"
	DropNotJoined         = "not_joined"
	DropIdentityMismatch  = "identity_mismatch"
	DropRoomMismatch      = "room_mismatch"
	DropInvalid           = "invalid"
	DropRateLimited       = "rate_limited"
)

type nopRecorder struct{}

func (nopRecorder) ConnectionOpened()         {}
func (nopRecorder) ConnectionClosed()         {}
func (nopRecorder) RoomJoined(int)            {}
func (nopRecorder) EventRelayed(string, int)  {}
func (nopRecorder) EventDropped(string)       {}
func (nopRecorder) SlowConsumerDisconnected() {}
