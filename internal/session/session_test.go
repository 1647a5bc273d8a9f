package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/jobs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLoader struct {
	text  string
	ok    bool
	err   error
	calls int32
}

func (f *fakeLoader) LoadResume(ctx context.Context, userID string) (string, bool, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.text, f.ok, f.err
}

func TestNewRejectsBlankUser(t *testing.T) {
	if _, err := New("   "); !errors.Is(err, agenterr.ErrEmptyUserID) {
		t.Fatalf("expected empty user error, got %v", err)
	}
}

func TestApplyFreshSearchInvalidatesSelection(t *testing.T) {
	current, _ := New("42")
	current.Jobs = []jobs.Job{{Link: "a"}, {Link: "b"}, {Link: "c"}}
	current.SelectedJobIndex = Int(2)

	current.Apply(Delta{ReplaceJobs: true, Jobs: []jobs.Job{{Link: "z"}}})

	if _, ok := current.SelectedIndex(); ok {
		t.Fatal("expected selection to be invalid after a fresh search")
	}
	if current.SelectedJobIndex != nil {
		t.Fatal("expected selected index to be cleared")
	}
	if len(current.Jobs) != 1 || current.Jobs[0].Link != "z" {
		t.Fatalf("unexpected jobs after replace: %+v", current.Jobs)
	}
}

func TestApplyAppendKeepsPrefixAndSkipsDuplicates(t *testing.T) {
	current, _ := New("42")
	current.Jobs = []jobs.Job{{Link: "a"}, {Link: "b"}}
	current.SelectedJobIndex = Int(1)

	current.Apply(Delta{AppendJobs: []jobs.Job{{Link: "b"}, {Link: "c"}, {Link: "c"}}})

	if len(current.Jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(current.Jobs))
	}
	if current.Jobs[0].Link != "a" || current.Jobs[1].Link != "b" || current.Jobs[2].Link != "c" {
		t.Fatalf("unexpected order: %+v", current.Jobs)
	}
	if index, ok := current.SelectedIndex(); !ok || index != 1 {
		t.Fatalf("expected selection to survive append, got %d %v", index, ok)
	}
}

func TestApplySparseMergeLeavesOtherFields(t *testing.T) {
	current, _ := New("42")
	current.Resume = "base resume"
	current.SearchQuery = "go"
	current.AppendTurn(RoleUser, "hello", time.Now())

	current.Apply(Delta{
		Documents: &Documents{Resume: "tailored", CoverLetter: "letter", Job: jobs.Job{Title: "Go Dev"}},
		History:   []Turn{{Role: RoleAssistant, Content: "done"}},
	})

	if current.Resume != "base resume" || current.SearchQuery != "go" {
		t.Fatal("expected untouched fields to survive the merge")
	}
	if !current.HasDocuments() || current.SelectedJob == nil || current.SelectedJob.Title != "Go Dev" {
		t.Fatal("expected document pair and job to be stored together")
	}
	if len(current.History) != 2 || current.History[1].Content != "done" {
		t.Fatalf("expected history to be appended, got %+v", current.History)
	}
}

func TestCloneIsDeep(t *testing.T) {
	current, _ := New("42")
	current.Jobs = []jobs.Job{{Link: "a"}}
	current.SelectedJobIndex = Int(0)
	copied := current.Clone()
	copied.Jobs[0].Link = "changed"
	*copied.SelectedJobIndex = 5
	if current.Jobs[0].Link != "a" || *current.SelectedJobIndex != 0 {
		t.Fatal("expected clone to be independent")
	}
}

func TestStoreRestoresResumeOnFirstContact(t *testing.T) {
	loader := &fakeLoader{text: "saved resume", ok: true}
	store := NewStore(loader, testLogger())

	for i := 0; i < 2; i++ {
		err := store.Do(context.Background(), "7", func(current *Session) error {
			if current.Resume != "saved resume" {
				t.Fatalf("expected restored resume, got %q", current.Resume)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("do: %v", err)
		}
	}
	if atomic.LoadInt32(&loader.calls) != 1 {
		t.Fatalf("expected one restore call, got %d", loader.calls)
	}
}

func TestStoreIgnoresLoaderFailure(t *testing.T) {
	store := NewStore(&fakeLoader{err: errors.New("disk gone")}, testLogger())
	err := store.Do(context.Background(), "7", func(current *Session) error {
		if current.HasResume() {
			t.Fatal("expected no resume")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestStoreSerializesSameUser(t *testing.T) {
	store := NewStore(nil, testLogger())
	var active int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Do(context.Background(), "same", func(current *Session) error {
				if atomic.AddInt32(&active, 1) != 1 {
					t.Error("two turns ran at once for the same user")
				}
				current.AppendTurn(RoleUser, "x", time.Now())
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	snapshot, ok := store.Snapshot(context.Background(), "same")
	if !ok || len(snapshot.History) != 20 {
		t.Fatalf("expected 20 turns, got %+v", snapshot)
	}
}

func TestStoreDoesNotBlockOtherUsers(t *testing.T) {
	store := NewStore(nil, testLogger())
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = store.Do(context.Background(), "slow", func(current *Session) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := store.Do(ctx, "fast", func(current *Session) error { return nil }); err != nil {
		t.Fatalf("expected other user to proceed, got %v", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	err := store.Do(waitCtx, "slow", func(current *Session) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected same user to wait until deadline, got %v", err)
	}

	close(release)
	<-done
	if store.Len() != 2 {
		t.Fatalf("expected two sessions, got %d", store.Len())
	}
}
