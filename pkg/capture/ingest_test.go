// bouchon/pkg/capture/ingest_test.go

package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bouchon/pkg/flow"
)

func TestIngestorReportsCompletions(t *testing.T) {
	ing := NewIngestor(func(f *flow.Flow) error { return nil }, 4)

	f1, f2 := flow.New(), flow.New()
	ing.Enqueue(f1)
	ing.Enqueue(f2)

	r1 := <-ing.Results()
	r2 := <-ing.Results()
	ing.Close()

	assert.Equal(t, f1.ID, r1.FlowID)
	assert.NoError(t, r1.Err)
	assert.Equal(t, f2.ID, r2.FlowID)
}

func TestIngestorReportsFailures(t *testing.T) {
	boom := errors.New("boom")
	ing := NewIngestor(func(f *flow.Flow) error { return boom }, 4)

	ing.Enqueue(flow.New())
	res := <-ing.Results()
	ing.Close()

	assert.ErrorIs(t, res.Err, boom)
}

func TestIngestorWorksWithoutResultConsumer(t *testing.T) {
	seen := 0
	ing := NewIngestor(func(f *flow.Flow) error {
		seen++
		return nil
	}, 2)

	// Enqueue more flows than the results buffer holds; nobody reads the
	// notifications and ingestion must still finish.
	for i := 0; i < 10; i++ {
		ing.Enqueue(flow.New())
	}
	ing.Close()

	assert.Equal(t, 10, seen)
}

func TestIngestorEnqueueAfterCloseIsDropped(t *testing.T) {
	seen := 0
	ing := NewIngestor(func(f *flow.Flow) error {
		seen++
		return nil
	}, 4)
	ing.Enqueue(flow.New())
	ing.Close()

	require.NotPanics(t, func() { ing.Enqueue(flow.New()) })
	assert.Equal(t, 1, seen)
}

func TestIngestorCloseIsIdempotent(t *testing.T) {
	ing := NewIngestor(func(f *flow.Flow) error { return nil }, 1)
	ing.Enqueue(flow.New())
	ing.Close()
	require.NotPanics(t, ing.Close)
}
