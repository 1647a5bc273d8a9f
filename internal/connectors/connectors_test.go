package connectors

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSplitMessageShortText(t *testing.T) {
	chunks := SplitMessage("  hello  ", 10)
	if len(chunks) != 1 || chunks[0] != "  hello  " {
		t.Fatalf("unexpected chunks %q", chunks)
	}
	if SplitMessage("", 10) != nil {
		t.Fatal("expected no chunks for empty text")
	}
}

func TestSplitMessageHardCutCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 25)
	chunks := SplitMessage(text, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected three chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks[:2] {
		if len([]rune(chunk)) != 10 {
			t.Fatalf("expected 10-rune chunk, got %q", chunk)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("chunks must reassemble to the original text")
	}
}

func TestSplitMessageKeepsWhitespaceAndNewlines(t *testing.T) {
	text := "  head\n" + strings.Repeat("a", 2500) + "\n" + strings.Repeat("b", 3000) + "\n\n"
	chunks := SplitMessage(text, MaxMessageRunes)
	if len(chunks) != 2 {
		t.Fatalf("expected two chunks, got %d", len(chunks))
	}
	if len([]rune(chunks[0])) != MaxMessageRunes {
		t.Fatalf("expected a full first chunk, got %d runes", len([]rune(chunks[0])))
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("chunks must reassemble to the original text")
	}
}

func TestDispatcherKeepsPerKeyOrder(t *testing.T) {
	dispatcher := NewDispatcher()
	var mu sync.Mutex
	seen := map[string][]int{}
	for i := 0; i < 50; i++ {
		for _, key := range []string{"alice", "bob"} {
			dispatcher.Submit(key, func() {
				time.Sleep(time.Millisecond / 10)
				mu.Lock()
				seen[key] = append(seen[key], i)
				mu.Unlock()
			})
		}
	}
	dispatcher.Wait()
	for _, key := range []string{"alice", "bob"} {
		if len(seen[key]) != 50 {
			t.Fatalf("expected 50 jobs for %s, got %d", key, len(seen[key]))
		}
		for index, value := range seen[key] {
			if value != index {
				t.Fatalf("jobs for %s ran out of order: %v", key, seen[key])
			}
		}
	}
}

func TestDispatcherRunsKeysConcurrently(t *testing.T) {
	dispatcher := NewDispatcher()
	release := make(chan struct{})
	done := make(chan struct{})
	dispatcher.Submit("slow", func() { <-release })
	dispatcher.Submit("fast", func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fast key was blocked by slow key")
	}
	close(release)
	dispatcher.Wait()
}
