package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/dwizi/job-agent/internal/gateway"
)

type fakeChatGateway struct {
	mu        sync.Mutex
	messages  []gateway.MessageInput
	documents []gateway.DocumentInput
}

func (f *fakeChatGateway) HandleMessage(ctx context.Context, input gateway.MessageInput) (gateway.MessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, input)
	output := gateway.MessageOutput{Handled: true, Reply: "reply to " + input.Text}
	if input.Text == "/compose" {
		output.ArtifactPath = "/tmp/Job_Application.pdf"
	}
	return output, nil
}

func (f *fakeChatGateway) IngestResume(ctx context.Context, input gateway.DocumentInput) (gateway.MessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, input)
	return gateway.MessageOutput{Handled: true, Reply: "✅ Resume uploaded"}, nil
}

func newTestCommand(input string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetContext(context.Background())
	return cmd, out
}

func TestInteractiveChatSendsLinesUntilExit(t *testing.T) {
	resumePath := filepath.Join(t.TempDir(), "cv.txt")
	if err := os.WriteFile(resumePath, []byte("Jane Doe"), 0o600); err != nil {
		t.Fatalf("write resume: %v", err)
	}
	fake := &fakeChatGateway{}
	cmd, out := newTestCommand("/search go\n\n/upload " + resumePath + "\n/compose\n/exit\n/help\n")

	identity := chatIdentity{connector: "cli", userID: "u-1", timeout: boundedTimeout(10)}
	if err := runInteractiveChat(cmd, fake, identity); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(fake.messages) != 2 || fake.messages[0].Text != "/search go" || fake.messages[0].UserID != "u-1" {
		t.Fatalf("unexpected messages %+v", fake.messages)
	}
	if len(fake.documents) != 1 || fake.documents[0].Filename != "cv.txt" || string(fake.documents[0].Data) != "Jane Doe" {
		t.Fatalf("unexpected documents %+v", fake.documents)
	}
	output := out.String()
	if !strings.Contains(output, "bot> reply to /search go") || !strings.Contains(output, "[document] /tmp/Job_Application.pdf") {
		t.Fatalf("unexpected output:\n%s", output)
	}
}

func TestParseTranscriptContent(t *testing.T) {
	raw := strings.Join([]string{
		"# Job Agent Transcript",
		"",
		"- connector: `telegram`",
		"- user: `42`",
		"",
		"## 2026-03-01T12:00:00Z INBOUND `search`",
		"",
		"/search golang berlin",
		"",
		"## 2026-03-01T12:00:01Z OUTBOUND `search`",
		"",
		"Found 3 jobs",
		"1. Go Dev",
		"",
		"## 2026-03-01T12:01:00Z INBOUND",
		"",
		"what about remote?",
		"",
	}, "\n")

	entries := parseTranscriptContent(raw)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Action != "search" || entries[0].Direction != "inbound" || entries[0].Timestamp.IsZero() {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Text != "Found 3 jobs\n1. Go Dev" {
		t.Fatalf("unexpected outbound text %q", entries[1].Text)
	}
	inbound := inboundMessages(entries)
	if strings.Join(inbound, "|") != "/search golang berlin|what about remote?" {
		t.Fatalf("unexpected inbound %v", inbound)
	}
}

func TestCheckConfigReportsMissingKeys(t *testing.T) {
	for _, key := range []string{
		"JOB_AGENT_TELEGRAM_TOKEN",
		"JOB_AGENT_LLM_API_KEY",
		"JOB_AGENT_JOOBLE_API_KEY",
		"JOB_AGENT_GOOGLE_SERVICE_ACCOUNT_FILE",
		"JOB_AGENT_GOOGLE_SHEET_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("JOB_AGENT_TELEGRAM_TOKEN", "tg")

	cmd := newCheckConfigCommand()
	cmd.SetArgs([]string{})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "JOB_AGENT_LLM_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if strings.Contains(out.String(), "JOB_AGENT_TELEGRAM_TOKEN") || !strings.Contains(out.String(), "missing: JOB_AGENT_GOOGLE_SHEET_URL") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestBoundedTimeoutAndCompactLine(t *testing.T) {
	if boundedTimeout(1).Seconds() != 5 || boundedTimeout(9999).Seconds() != 600 {
		t.Fatal("timeout bounds not applied")
	}
	if got := compactLine("  a\n b   c ", 3); got != "a b..." {
		t.Fatalf("unexpected compact line %q", got)
	}
}

func TestExportsCommandListsRemoteHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/exports" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"exports":[{"id":"1","target_url":"https://sheet","job_count":7,"created_at_unix":1772366400}]}`))
	}))
	defer server.Close()

	cmd := newExportsCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--api-url", server.URL})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("exports: %v", err)
	}
	if !strings.Contains(out.String(), "  7 jobs  https://sheet") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
