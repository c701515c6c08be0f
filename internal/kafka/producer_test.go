package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/psds-microservice/crm-service/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewProducer_DisabledWithoutBrokers(t *testing.T) {
	p := NewProducer(nil, "crm.events", testutil.Logger())
	assert.False(t, p.Enabled())
	// no-op, не паникует
	p.Produce(context.Background(), EventTicketCreated, "t-1", map[string]string{"id": "t-1"})
	assert.NoError(t, p.Close())

	p = NewProducer([]string{"localhost:9092"}, "", testutil.Logger())
	assert.False(t, p.Enabled())
}

func TestNewProducer_Enabled(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "crm.events", testutil.Logger())
	assert.True(t, p.Enabled())
	assert.Equal(t, "crm.events", p.writer.Topic)
}

type recorder struct {
	mu     sync.Mutex
	events []string
	done   chan struct{}
}

func (r *recorder) Produce(_ context.Context, event, key string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, event+":"+key)
	r.mu.Unlock()
	close(r.done)
}

func TestAsync(t *testing.T) {
	r := &recorder{done: make(chan struct{})}
	Async(r, EventCustomerCreated, "c-1", nil)
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not produced")
	}
	assert.Equal(t, []string{"customer.created:c-1"}, r.events)

	// nil producer допускается
	Async(nil, EventCustomerCreated, "c-1", nil)
}
