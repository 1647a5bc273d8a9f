package connectors

import (
	"context"
	"sync"
)

// MaxMessageRunes keeps each outbound chunk under Telegram's 4096 character cap.
const MaxMessageRunes = 4000

type Connector interface {
	Name() string
	Start(ctx context.Context) error
}

// SplitMessage cuts text into consecutive slices of limit runes. Joining the
// slices gives back text unchanged.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageRunes
	}
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Dispatcher runs jobs for different keys concurrently while jobs that share
// a key run one at a time in submission order.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string][]func()
	wg     sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{queues: map[string][]func(){}}
}

func (d *Dispatcher) Submit(key string, job func()) {
	d.mu.Lock()
	pending, running := d.queues[key]
	d.queues[key] = append(pending, job)
	if !running {
		d.wg.Add(1)
	}
	d.mu.Unlock()
	if !running {
		go d.drain(key)
	}
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[key]
		if len(queue) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := queue[0]
		d.queues[key] = queue[1:]
		d.mu.Unlock()
		job()
	}
}
