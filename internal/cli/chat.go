package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwizi/job-agent/internal/adminclient"
	"github.com/dwizi/job-agent/internal/app"
	"github.com/dwizi/job-agent/internal/config"
	"github.com/dwizi/job-agent/internal/gateway"
)

// chatGateway is the slice of the dispatcher the local chat needs.
type chatGateway interface {
	HandleMessage(ctx context.Context, input gateway.MessageInput) (gateway.MessageOutput, error)
	IngestResume(ctx context.Context, input gateway.DocumentInput) (gateway.MessageOutput, error)
}

var transcriptSectionPattern = regexp.MustCompile(`^##\s+(\S+)\s+(INBOUND|OUTBOUND)(?:\s+` + "`" + `([^` + "`" + `]+)` + "`" + `)?\s*$`)

type transcriptEntry struct {
	Timestamp time.Time
	Direction string
	Action    string
	Text      string
}

type chatIdentity struct {
	connector string
	userID    string
	display   string
	timeout   time.Duration
}

func newChatCommand(logger *slog.Logger) *cobra.Command {
	var (
		userID     string
		display    string
		message    string
		resumePath string
		apiURL     string
		apiToken   string
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the bot locally without Telegram",
		Long:  "Runs the same dispatcher the connectors use, in-process or against a running server with --api-url. Use /upload <path> to send a résumé.",
		RunE: func(cmd *cobra.Command, args []string) error {
			commandGateway, closeFn, err := openGateway(cmd.Context(), apiURL, apiToken, boundedTimeout(timeoutSec), quietLogger(logger))
			if err != nil {
				return err
			}
			defer closeFn()

			identity := chatIdentity{connector: "cli", userID: userID, display: display, timeout: boundedTimeout(timeoutSec)}
			if resumePath != "" {
				if err := uploadResume(cmd, commandGateway, identity, resumePath); err != nil {
					return err
				}
			}
			text := strings.TrimSpace(message)
			if text == "" && len(args) > 0 {
				text = strings.TrimSpace(strings.Join(args, " "))
			}
			if text != "" {
				return sendOnce(cmd, commandGateway, identity, text)
			}

			cmd.Printf("Chatting as %s. Type /exit to quit.\n", identity.userID)
			return runInteractiveChat(cmd, commandGateway, identity)
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "cli-user", "user id for this chat session")
	cmd.Flags().StringVar(&display, "display-name", "CLI", "display name for the session")
	cmd.Flags().StringVarP(&message, "message", "m", "", "single message to send (non-interactive mode)")
	cmd.Flags().StringVar(&resumePath, "resume", "", "résumé file to upload before chatting")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "base url of a running job-agent; empty runs the dispatcher in-process")
	cmd.Flags().StringVar(&apiToken, "api-token", os.Getenv("JOB_AGENT_HTTP_API_TOKEN"), "bearer token for --api-url")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 120, "per-message timeout in seconds")

	cmd.AddCommand(newChatReplayCommand(logger))
	return cmd
}

func openGateway(ctx context.Context, apiURL, apiToken string, timeout time.Duration, logger *slog.Logger) (chatGateway, func(), error) {
	if strings.TrimSpace(apiURL) == "" {
		return openLocalGateway(ctx, logger)
	}
	client, err := adminclient.New(apiURL, apiToken, timeout)
	if err != nil {
		return nil, nil, err
	}
	return client, func() {}, nil
}

func openLocalGateway(ctx context.Context, logger *slog.Logger) (chatGateway, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runtime, err := app.New(ctx, config.FromEnv(), logger)
	if err != nil {
		return nil, nil, err
	}
	return runtime.Gateway(), func() { _ = runtime.Close() }, nil
}

// quietLogger keeps the REPL readable; only warnings reach stderr.
func quietLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil && logger.Enabled(context.Background(), slog.LevelDebug) {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func sendOnce(cmd *cobra.Command, commandGateway chatGateway, identity chatIdentity, text string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), identity.timeout)
	defer cancel()
	output, err := commandGateway.HandleMessage(ctx, gateway.MessageInput{
		Connector:   identity.connector,
		UserID:      identity.userID,
		DisplayName: identity.display,
		Text:        text,
	})
	if err != nil {
		return err
	}
	printAgentReply(cmd, output)
	return nil
}

func uploadResume(cmd *cobra.Command, commandGateway chatGateway, identity chatIdentity, path string) error {
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("read résumé: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), identity.timeout)
	defer cancel()
	output, err := commandGateway.IngestResume(ctx, gateway.DocumentInput{
		Connector: identity.connector,
		UserID:    identity.userID,
		Filename:  filepath.Base(path),
		Data:      data,
	})
	if err != nil {
		return err
	}
	printAgentReply(cmd, output)
	return nil
}

func runInteractiveChat(cmd *cobra.Command, commandGateway chatGateway, identity chatIdentity) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		cmd.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case strings.HasPrefix(line, "/upload "):
			if err := uploadResume(cmd, commandGateway, identity, strings.TrimSpace(strings.TrimPrefix(line, "/upload "))); err != nil {
				cmd.PrintErrf("upload failed: %v\n", err)
			}
			continue
		}
		if err := sendOnce(cmd, commandGateway, identity, line); err != nil {
			cmd.PrintErrf("error: %v\n", err)
		}
	}
	cmd.Println()
	return scanner.Err()
}

func printAgentReply(cmd *cobra.Command, output gateway.MessageOutput) {
	reply := strings.TrimSpace(output.Reply)
	if reply == "" {
		cmd.Println("bot> (no reply)")
		return
	}
	cmd.Printf("bot> %s\n", reply)
	if output.ArtifactPath != "" {
		cmd.Printf("bot> [document] %s\n", output.ArtifactPath)
	}
}

func newChatReplayCommand(logger *slog.Logger) *cobra.Command {
	var (
		userID     string
		dryRun     bool
		timeoutSec int
	)
	cmd := &cobra.Command{
		Use:   "replay <transcript.md>",
		Short: "Resend the inbound messages of a stored transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			entries := parseTranscriptContent(string(raw))
			inbound := inboundMessages(entries)
			if dryRun {
				for i, text := range inbound {
					cmd.Printf("%d. %s\n", i+1, compactLine(text, 160))
				}
				return nil
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			cmd.SetContext(ctx)
			commandGateway, closeFn, err := openLocalGateway(ctx, quietLogger(logger))
			if err != nil {
				return err
			}
			defer closeFn()
			identity := chatIdentity{connector: "replay", userID: userID, timeout: boundedTimeout(timeoutSec)}
			failures := 0
			for _, text := range inbound {
				cmd.Printf("you> %s\n", compactLine(text, 160))
				if err := sendOnce(cmd, commandGateway, identity, text); err != nil {
					failures++
					cmd.PrintErrf("error: %v\n", err)
				}
			}
			cmd.Printf("replayed %d messages, %d failed\n", len(inbound), failures)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "replay-user", "user id the messages are replayed as")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the inbound messages without sending them")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 120, "per-message timeout in seconds")
	return cmd
}

// parseTranscriptContent reads the markdown written by memorylog.
func parseTranscriptContent(content string) []transcriptEntry {
	var (
		entries []transcriptEntry
		current *transcriptEntry
		body    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Text != "" {
			entries = append(entries, *current)
		}
		current = nil
		body = nil
	}
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if match := transcriptSectionPattern.FindStringSubmatch(line); match != nil {
			flush()
			timestamp, _ := time.Parse(time.RFC3339, match[1])
			current = &transcriptEntry{
				Timestamp: timestamp,
				Direction: strings.ToLower(match[2]),
				Action:    match[3],
			}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()
	return entries
}

func inboundMessages(entries []transcriptEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Direction == "inbound" {
			out = append(out, entry.Text)
		}
	}
	return out
}

func boundedTimeout(input int) time.Duration {
	if input < 5 {
		input = 5
	}
	if input > 600 {
		input = 600
	}
	return time.Duration(input) * time.Second
}

func compactLine(input string, maxLen int) string {
	compact := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 || len([]rune(compact)) <= maxLen {
		return compact
	}
	return string([]rune(compact)[:maxLen]) + "..."
}
