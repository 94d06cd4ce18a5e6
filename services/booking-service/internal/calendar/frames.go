package calendar

// FrameScheduler runs fn on the next render frame.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// SyncFrames runs every frame immediately. Used when a grid is built for a
// single response and nothing renders between events.
type SyncFrames struct{}

func (SyncFrames) RequestFrame(fn func()) { fn() }
