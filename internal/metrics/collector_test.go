package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpIndexSearch, 10*time.Millisecond)
	c.RecordTiming(OpIndexSearch, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.IndexSearch)
	assert.Equal(t, int64(2), snap.IndexSearch.Count)
	assert.Equal(t, int64(40), snap.IndexSearch.TotalTimeMs)
	assert.Equal(t, 20.0, snap.IndexSearch.AvgTimeMs)
	assert.Equal(t, int64(10), snap.IndexSearch.MinTimeMs)
	assert.Equal(t, int64(30), snap.IndexSearch.MaxTimeMs)
	assert.Nil(t, snap.Stitch, "operations without data are omitted")
}

func TestCollectorObserveCountsFailures(t *testing.T) {
	c := NewCollector()
	start := time.Now()
	c.Observe(OpLLMGenerate, start, nil)
	c.Observe(OpLLMGenerate, start, errors.New("timeout"))

	snap := c.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	assert.Equal(t, int64(2), snap.LLMGenerate.Count)
	assert.Equal(t, int64(1), snap.LLMGenerate.Failures)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordTiming(OpStitch, time.Second)
	c.Observe(OpStitch, time.Now(), nil)
	assert.Equal(t, Snapshot{}, c.Snapshot())
}

func TestCollectorConcurrentUse(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(OpEmbedding, time.Millisecond)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.NotNil(t, snap.Embedding)
	assert.Equal(t, int64(50), snap.Embedding.Count)
}
