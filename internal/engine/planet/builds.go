package planet

// Builds tracks the asynchronous builds a main loop has started. A superseded
// build keeps running until it has handed its blocks back for release, so an
// owner must wait for all of them before it stops the main executor.
type Builds struct {
	pending []<-chan error
}

// Add tracks the result channel of BuildAsync or RegenerateAsync.
func (b *Builds) Add(ch <-chan error) {
	b.pending = append(b.pending, ch)
}

// Pending returns the number of builds that have not reported yet.
func (b *Builds) Pending() int { return len(b.pending) }

// Poll collects the results of finished builds without blocking.
func (b *Builds) Poll() []error {
	var done []error
	running := b.pending[:0]
	for _, ch := range b.pending {
		select {
		case err := <-ch:
			done = append(done, err)
		default:
			running = append(running, ch)
		}
	}
	clear(b.pending[len(running):])
	b.pending = running
	return done
}

// Wait collects every result, oldest first. wait blocks on one channel; on the
// main context it must keep draining the main executor meanwhile.
func (b *Builds) Wait(wait func(<-chan error) error) []error {
	done := make([]error, 0, len(b.pending))
	for _, ch := range b.pending {
		done = append(done, wait(ch))
	}
	b.pending = nil
	return done
}
