package domain

import "sync"

// EstimateFeed keeps the latest estimate and fans it out to subscribers.
// Slow subscribers only ever see the newest value.
type EstimateFeed struct {
	mu        sync.Mutex
	latest    EstimationResult
	hasLatest bool
	nextID    int
	subs      map[int]chan EstimationResult
}

// NewEstimateFeed creates an empty feed.
func NewEstimateFeed() *EstimateFeed {
	return &EstimateFeed{
		subs: make(map[int]chan EstimationResult),
	}
}

// Publish stores the result and delivers it without blocking.
func (f *EstimateFeed) Publish(result EstimationResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = result
	f.hasLatest = true

	for _, ch := range f.subs {
		deliverLatest(ch, result)
	}
}

// Latest returns the most recent result, if any.
func (f *EstimateFeed) Latest() (EstimationResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.latest, f.hasLatest
}

// Subscribe returns a channel primed with the latest result and a cancel func
// that closes it.
func (f *EstimateFeed) Subscribe() (<-chan EstimationResult, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan EstimationResult, 1)
	if f.hasLatest {
		ch <- f.latest
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

// deliverLatest replaces any undelivered value. Only Publish sends, under f.mu.
func deliverLatest(ch chan EstimationResult, result EstimationResult) {
	select {
	case ch <- result:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- result
	}
}
