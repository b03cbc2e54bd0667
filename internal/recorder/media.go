package recorder

// Media is the card-detect signal of the removable slot: a synchronous
// level read plus an edge-driven removal event.
type Media interface {
	// Present reads the card-detect level.
	Present() (bool, error)
	// Removals delivers one value per detected removal. Capacity one; the
	// gpio event handler does a non-blocking send and nothing else.
	Removals() <-chan struct{}
	Close() error
}
