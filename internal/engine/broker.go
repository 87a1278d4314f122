package engine

import "sync"

const (
	// subscriberBufferSize is the channel buffer for each report subscriber.
	// Lines are dropped if a subscriber falls this far behind.
	subscriberBufferSize = 64

	// historySize is the number of recent lines replayed to new subscribers.
	historySize = 32
)

// ReportBroker fans report lines of a run out to subscribers. It is safe for
// concurrent use.
//
// Closed topics are retained so that late subscribers replay the tail of the
// report and then see a closed channel instead of blocking forever.
type ReportBroker struct {
	mu     sync.Mutex
	topics map[string]*reportTopic
}

type reportTopic struct {
	subs    map[int]chan string
	nextID  int
	history []string
	closed  bool
}

// NewReportBroker creates an empty broker.
func NewReportBroker() *ReportBroker {
	return &ReportBroker{
		topics: make(map[string]*reportTopic),
	}
}

func (b *ReportBroker) topic(runID string) *reportTopic {
	t, ok := b.topics[runID]
	if !ok {
		t = &reportTopic{subs: make(map[int]chan string)}
		b.topics[runID] = t
	}
	return t
}

// Subscribe returns a channel receiving the report lines of runID, starting
// with up to historySize recent lines, and an unsubscribe function. If the run
// is already closed the channel is closed once the history is drained.
func (b *ReportBroker) Subscribe(runID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(runID)
	ch := make(chan string, subscriberBufferSize+historySize)
	for _, line := range t.history {
		ch <- line
	}
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends a line to every subscriber of runID. Lines are dropped for
// subscribers whose buffers are full.
func (b *ReportBroker) Publish(runID, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(runID)
	if t.closed {
		return
	}
	t.history = append(t.history, line)
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}

	for _, ch := range t.subs {
		select {
		case ch <- line:
		default:
			// Never block the run loop on a slow reader.
		}
	}
}

// Close ends the stream of runID. Subscriber channels are closed and later
// subscribers only receive the history.
func (b *ReportBroker) Close(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(runID)
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
