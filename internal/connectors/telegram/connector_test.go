package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dwizi/job-agent/internal/gateway"
)

type fakeGateway struct {
	mu        sync.Mutex
	messages  []gateway.MessageInput
	documents []gateway.DocumentInput
	output    gateway.MessageOutput
}

func (f *fakeGateway) HandleMessage(ctx context.Context, input gateway.MessageInput) (gateway.MessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, input)
	return f.output, nil
}

func (f *fakeGateway) IngestResume(ctx context.Context, input gateway.DocumentInput) (gateway.MessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, input)
	return gateway.MessageOutput{Handled: true, Reply: "✅ Resume uploaded"}, nil
}

type fakeTelegramAPI struct {
	mu          sync.Mutex
	sent        []map[string]any
	documents   []string
	commands    []string
	rejectMDOne bool
	failGetFile bool
	updates     string
}

func (f *fakeTelegramAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.rejectMDOne && body["parse_mode"] == "Markdown" {
			f.rejectMDOne = false
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
			return
		}
		f.sent = append(f.sent, body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	case strings.HasSuffix(r.URL.Path, "/sendDocument"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, header, err := r.FormFile("document")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.documents = append(f.documents, r.FormValue("chat_id")+":"+header.Filename)
		_, _ = w.Write([]byte(`{"ok":true}`))
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		_, _ = w.Write([]byte(f.updates))
	case strings.HasSuffix(r.URL.Path, "/getFile") && f.failGetFile:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":500,"description":"Internal Server Error"}`))
	case strings.HasSuffix(r.URL.Path, "/getFile"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"file_path":"documents/cv.txt"}}`))
	case strings.HasSuffix(r.URL.Path, "/documents/cv.txt"):
		_, _ = w.Write([]byte("Jane Doe\nGo engineer"))
	case strings.HasSuffix(r.URL.Path, "/setMyCommands"):
		var body struct {
			Commands []struct {
				Command string `json:"command"`
			} `json:"commands"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, command := range body.Commands {
			f.commands = append(f.commands, command.Command)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestConnector(t *testing.T, api *fakeTelegramAPI, gw Gateway) *Connector {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return New("test-token", server.URL, 1, gw, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleMessageChunksLongReplies(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &fakeGateway{output: gateway.MessageOutput{Handled: true, Reply: strings.Repeat("x", 9000)}}
	connector := newTestConnector(t, api, gw)

	err := connector.handleMessage(context.Background(), telegramMessage{
		From: telegramUser{ID: 77, FirstName: "Jane"},
		Chat: telegramChat{ID: 500, Type: "private"},
		Text: "/search go developer",
	})
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if len(gw.messages) != 1 || gw.messages[0].UserID != "77" || gw.messages[0].DisplayName != "Jane" {
		t.Fatalf("unexpected gateway input %+v", gw.messages)
	}
	if len(api.sent) != 3 {
		t.Fatalf("expected three chunks, got %d", len(api.sent))
	}
	if len(api.sent[0]["text"].(string)) != 4000 || len(api.sent[2]["text"].(string)) != 1000 {
		t.Fatal("unexpected chunk sizes")
	}
}

func TestHandleMessageSendsComposedPDF(t *testing.T) {
	api := &fakeTelegramAPI{}
	pdfPath := filepath.Join(t.TempDir(), "JobApplication_77.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	gw := &fakeGateway{output: gateway.MessageOutput{Handled: true, Reply: "✅ Done", ArtifactPath: pdfPath}}
	connector := newTestConnector(t, api, gw)

	err := connector.handleMessage(context.Background(), telegramMessage{
		From: telegramUser{ID: 77},
		Chat: telegramChat{ID: 500},
		Text: "/compose",
	})
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if len(api.documents) != 1 || api.documents[0] != "500:Job_Application.pdf" {
		t.Fatalf("expected pdf delivery, got %v", api.documents)
	}
}

func TestHandleDocumentRoutesToResumeIngest(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &fakeGateway{}
	connector := newTestConnector(t, api, gw)

	err := connector.handleMessage(context.Background(), telegramMessage{
		From:     telegramUser{ID: 77},
		Chat:     telegramChat{ID: 500},
		Document: &telegramDocument{FileID: "f1", FileName: "My CV.txt", FileSize: 20},
	})
	if err != nil {
		t.Fatalf("handle document: %v", err)
	}
	if len(gw.documents) != 1 {
		t.Fatalf("expected resume ingest, got %+v", gw.documents)
	}
	if gw.documents[0].Filename != "My-CV.txt" || string(gw.documents[0].Data) != "Jane Doe\nGo engineer" {
		t.Fatalf("unexpected document input %+v", gw.documents[0])
	}
	if len(gw.messages) != 0 {
		t.Fatal("document should bypass the text parser")
	}
	if len(api.sent) != 1 || api.sent[0]["text"] != "✅ Resume uploaded" {
		t.Fatalf("unexpected replies %v", api.sent)
	}
}

func TestHandleDocumentRejectsOversizedFile(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &fakeGateway{}
	connector := newTestConnector(t, api, gw)

	err := connector.handleMessage(context.Background(), telegramMessage{
		From:     telegramUser{ID: 77},
		Chat:     telegramChat{ID: 500},
		Document: &telegramDocument{FileID: "f1", FileName: "cv.pdf", FileSize: 50 << 20},
	})
	if err != nil {
		t.Fatalf("handle document: %v", err)
	}
	if len(gw.documents) != 0 || len(api.sent) != 1 {
		t.Fatalf("expected rejection without ingest, docs=%d sent=%d", len(gw.documents), len(api.sent))
	}
}

func TestHandleDocumentRepliesWhenDownloadFails(t *testing.T) {
	api := &fakeTelegramAPI{failGetFile: true}
	gw := &fakeGateway{}
	connector := newTestConnector(t, api, gw)

	err := connector.handleMessage(context.Background(), telegramMessage{
		From:     telegramUser{ID: 77},
		Chat:     telegramChat{ID: 500},
		Document: &telegramDocument{FileID: "f1", FileName: "cv.pdf", FileSize: 20},
	})
	if err != nil {
		t.Fatalf("handle document: %v", err)
	}
	if len(gw.documents) != 0 {
		t.Fatal("resume ingest should not run without file data")
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected one error reply, got %d", len(api.sent))
	}
	text := api.sent[0]["text"].(string)
	if !strings.HasPrefix(text, "❌") || !strings.Contains(text, "resume download") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestDeliverSkipsBlankChunks(t *testing.T) {
	api := &fakeTelegramAPI{}
	reply := strings.Repeat("x", 4000) + strings.Repeat(" ", 10)
	connector := newTestConnector(t, api, &fakeGateway{})

	if err := connector.deliver(context.Background(), 500, gateway.MessageOutput{Handled: true, Reply: reply}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected the blank tail to be skipped, got %d messages", len(api.sent))
	}
}

// blockingGateway holds user 1 until user 2 has been handled.
type blockingGateway struct {
	fakeGateway
	secondDone chan struct{}
	firstDone  chan struct{}
}

func (b *blockingGateway) HandleMessage(ctx context.Context, input gateway.MessageInput) (gateway.MessageOutput, error) {
	switch input.UserID {
	case "1":
		select {
		case <-b.secondDone:
		case <-time.After(2 * time.Second):
			return gateway.MessageOutput{Handled: true, Reply: "timed out"}, nil
		}
		close(b.firstDone)
	case "2":
		close(b.secondDone)
	}
	return gateway.MessageOutput{Handled: true, Reply: "ok " + input.UserID}, nil
}

func TestPollOnceRunsGroupMembersConcurrently(t *testing.T) {
	api := &fakeTelegramAPI{updates: `{"ok":true,"result":[
		{"update_id":10,"message":{"message_id":1,"from":{"id":1},"chat":{"id":-900,"type":"group"},"text":"/more"}},
		{"update_id":11,"message":{"message_id":2,"from":{"id":2},"chat":{"id":-900,"type":"group"},"text":"/help"}}
	]}`}
	gw := &blockingGateway{secondDone: make(chan struct{}), firstDone: make(chan struct{})}
	connector := newTestConnector(t, api, gw)

	if err := connector.pollOnce(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	connector.dispatcher.Wait()

	select {
	case <-gw.firstDone:
	default:
		t.Fatal("second sender was blocked behind the first in the same chat")
	}
	if connector.offset != 12 {
		t.Fatalf("expected offset 12, got %d", connector.offset)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.sent) != 2 {
		t.Fatalf("expected two replies, got %d", len(api.sent))
	}
}

func TestSendMessageFallsBackToPlainText(t *testing.T) {
	api := &fakeTelegramAPI{rejectMDOne: true}
	connector := newTestConnector(t, api, &fakeGateway{})

	if err := connector.sendMessage(context.Background(), 1, "senior_go_dev *remote"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected one delivered message, got %d", len(api.sent))
	}
	if _, ok := api.sent[0]["parse_mode"]; ok {
		t.Fatal("fallback should drop parse_mode")
	}
}

func TestSyncCommandsRegistersBotCommands(t *testing.T) {
	api := &fakeTelegramAPI{}
	connector := newTestConnector(t, api, &fakeGateway{})
	if err := connector.syncCommands(context.Background()); err != nil {
		t.Fatalf("sync commands: %v", err)
	}
	joined := strings.Join(api.commands, ",")
	for _, want := range []string{"search", "customize", "export", "resume", "more", "compose"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing command %s in %s", want, joined)
		}
	}
}

func TestStripMention(t *testing.T) {
	connector := New("t", "", 1, &fakeGateway{}, nil)
	connector.botUsername = "JobBot"
	if got := connector.stripMention("@jobbot find me remote work"); got != "find me remote work" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := connector.stripMention("/search go"); got != "/search go" {
		t.Fatalf("commands should pass through, got %q", got)
	}
}

func TestStartDisabledWithoutToken(t *testing.T) {
	connector := New("", "", 1, &fakeGateway{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := connector.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
}
