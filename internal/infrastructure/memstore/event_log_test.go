package memstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"eats-pos-link/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventN(n int) domain.WebhookEvent {
	return domain.WebhookEvent{
		ID:         fmt.Sprintf("evt-%d", n),
		ReceivedAt: time.Now(),
		EventType:  "store.provisioned",
	}
}

func TestEventLogEmpty(t *testing.T) {
	log := NewEventLog(5)
	assert.Zero(t, log.Len())
	assert.Empty(t, log.Recent())
}

func TestEventLogMostRecentFirst(t *testing.T) {
	log := NewEventLog(5)
	for i := 0; i < 3; i++ {
		log.Append(eventN(i))
	}

	events := log.Recent()
	require.Len(t, events, 3)
	assert.Equal(t, "evt-2", events[0].ID)
	assert.Equal(t, "evt-1", events[1].ID)
	assert.Equal(t, "evt-0", events[2].ID)
}

func TestEventLogEvictsOldestAtCapacity(t *testing.T) {
	log := NewEventLog(DefaultEventLogCapacity)
	for i := 0; i < DefaultEventLogCapacity+1; i++ {
		log.Append(eventN(i))
	}

	assert.Equal(t, DefaultEventLogCapacity, log.Len())

	events := log.Recent()
	require.Len(t, events, DefaultEventLogCapacity)
	assert.Equal(t, fmt.Sprintf("evt-%d", DefaultEventLogCapacity), events[0].ID)
	assert.Equal(t, "evt-1", events[len(events)-1].ID)
	for _, e := range events {
		assert.NotEqual(t, "evt-0", e.ID, "oldest entry must be evicted")
	}
}

func TestEventLogWrapsRepeatedly(t *testing.T) {
	log := NewEventLog(3)
	for i := 0; i < 10; i++ {
		log.Append(eventN(i))
	}

	events := log.Recent()
	require.Len(t, events, 3)
	assert.Equal(t, "evt-9", events[0].ID)
	assert.Equal(t, "evt-8", events[1].ID)
	assert.Equal(t, "evt-7", events[2].ID)
}

func TestEventLogNonPositiveCapacityFallsBack(t *testing.T) {
	log := NewEventLog(0)
	for i := 0; i < DefaultEventLogCapacity+10; i++ {
		log.Append(eventN(i))
	}
	assert.Equal(t, DefaultEventLogCapacity, log.Len())
}

func TestEventLogConcurrentAppends(t *testing.T) {
	log := NewEventLog(10)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			log.Append(eventN(n))
			log.Recent()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, log.Len())
	assert.Len(t, log.Recent(), 10)
}
