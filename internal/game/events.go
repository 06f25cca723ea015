package game

// Sound/event tags attached to the next broadcast.
const (
	EventRoundStart = "roundStart"
	EventReveal     = "reveal"
	EventRoundWin   = "roundWin"
	EventRoundLose  = "roundLose"
	EventRoundDraw  = "roundDraw"
	EventPaddleHit  = "paddleHit"
	EventWallHit    = "wallHit"
	EventScore      = "score"
	EventExplosion  = "explosion"
	EventMove       = "move"
	EventCheck      = "check"
	EventGameOver   = "gameOver"
)

// EventLog buffers event tags between broadcasts. Engines embed it to satisfy
// Engine.DrainEvents.
type EventLog struct {
	events []string
}

// Emit queues a tag for the next broadcast.
func (l *EventLog) Emit(tag string) {
	l.events = append(l.events, tag)
}

// DrainEvents returns the queued tags and resets the buffer.
func (l *EventLog) DrainEvents() []string {
	out := l.events
	l.events = nil
	return out
}
