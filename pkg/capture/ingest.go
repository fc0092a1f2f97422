// bouchon/pkg/capture/ingest.go

package capture

import (
	"sync"

	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
)

// Result reports the outcome of one deferred ingestion.
type Result struct {
	FlowID string
	Err    error
}

// Ingestor decouples a large import from the request that triggered it:
// decoded flows are queued and a single worker lands them, so relative order
// within one import is preserved while other work interleaves. Readers of
// the live view right after an import may not see every flow yet. An
// in-flight import cannot be cancelled.
type Ingestor struct {
	ingest  func(*flow.Flow) error
	tasks   chan *flow.Flow
	results chan Result
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewIngestor starts the worker. ingest lands one flow; buffer sizes the
// task queue, and Enqueue blocks once it is full.
func NewIngestor(ingest func(*flow.Flow) error, buffer int) *Ingestor {
	ing := &Ingestor{
		ingest:  ingest,
		tasks:   make(chan *flow.Flow, buffer),
		results: make(chan Result, buffer),
	}
	ing.wg.Add(1)
	go ing.run()
	return ing
}

func (ing *Ingestor) run() {
	defer ing.wg.Done()
	for f := range ing.tasks {
		err := ing.ingest(f)
		if err != nil {
			logging.LogError(logging.Logger, err)
		}
		// Completion notification is best-effort: a slow or absent
		// consumer must not stall ingestion.
		select {
		case ing.results <- Result{FlowID: f.ID, Err: err}:
		default:
		}
	}
}

// Enqueue schedules one flow for ingestion. Order of Enqueue calls is the
// order flows land. After Close the flow is dropped with a log line instead
// of panicking on the closed queue.
func (ing *Ingestor) Enqueue(f *flow.Flow) {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	if ing.closed {
		logging.Logger.Warn().Str("flow_id", f.ID).Msg("Ingestor closed, dropping flow")
		return
	}
	ing.tasks <- f
}

// Results exposes the completion channel.
func (ing *Ingestor) Results() <-chan Result {
	return ing.results
}

// Close drains the queue and stops the worker.
func (ing *Ingestor) Close() {
	ing.once.Do(func() {
		ing.mu.Lock()
		ing.closed = true
		close(ing.tasks)
		ing.mu.Unlock()
		ing.wg.Wait()
		close(ing.results)
	})
}
