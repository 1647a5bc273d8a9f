package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/jobs"
	"github.com/dwizi/job-agent/internal/session"
)

const uploadPreviewRunes = 500

type DocumentInput struct {
	Connector string
	UserID    string
	Filename  string
	Data      []byte
}

// IngestResume handles a file upload. It bypasses the text parser; parsing,
// persistence and the session update all happen under the user's lock.
func (s *Service) IngestResume(ctx context.Context, input DocumentInput) (MessageOutput, error) {
	logger := s.logger.With("turn_id", uuid.NewString(), "user_id", input.UserID, "connector", input.Connector)
	if _, err := session.New(input.UserID); err != nil {
		return MessageOutput{}, err
	}

	var (
		output  MessageOutput
		text    string
		failure *agenterr.Error
	)
	err := s.deps.Sessions.Do(ctx, input.UserID, func(current *session.Session) error {
		text, failure = s.extractResume(ctx, input)
		current.AppendTurn(session.RoleUser, "[uploaded file: "+filepath.Base(input.Filename)+"]", s.now())
		current.CurrentAction = session.ActionNone
		output = MessageOutput{Handled: true, Action: session.ActionNone}
		if failure != nil {
			current.LastError = failure
			current.LastResponse = failure.UserText()
			output.Reply = failure.UserText()
			output.ErrorKind = failure.Kind
			return nil
		}
		current.Apply(session.Delta{Resume: session.String(text)})
		current.LastError = nil
		current.LastResponse = uploadReply(text)
		output.Reply = current.LastResponse
		return nil
	})
	if err != nil {
		return MessageOutput{}, err
	}
	if failure != nil {
		logger.Warn("resume upload failed", "filename", input.Filename, "kind", failure.Kind, "detail", failure.Detail)
	} else {
		logger.Info("resume uploaded", "filename", input.Filename, "chars", len(text))
	}
	s.appendTranscript(logger, MessageInput{Connector: input.Connector, UserID: input.UserID, Text: "[uploaded " + input.Filename + "]"}, output)
	return output, nil
}

func (s *Service) extractResume(ctx context.Context, input DocumentInput) (string, *agenterr.Error) {
	if s.deps.Parser == nil {
		return "", agenterr.External("resume parsing", agenterr.ErrNotConfigured)
	}
	supported := s.deps.Parser.SupportedExtensions()
	if !hasExtension(input.Filename, supported) {
		return "", agenterr.Validation("❌ Unsupported file format. Please upload: " + strings.Join(supported, ", "))
	}
	text, err := s.deps.Parser.Parse(input.Data, input.Filename)
	if err != nil {
		if errors.Is(err, agenterr.ErrUnsupportedFormat) {
			return "", agenterr.Validation("❌ Unsupported file format. Please upload: " + strings.Join(supported, ", "))
		}
		return "", agenterr.External("resume parsing", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", agenterr.Validation("❌ Could not extract any text from that file. Try a different format.")
	}
	if s.deps.Resumes != nil {
		callCtx, cancel := s.externalContext(ctx)
		defer cancel()
		if err := s.deps.Resumes.SaveResume(callCtx, input.UserID, filepath.Base(input.Filename), text); err != nil {
			return "", agenterr.External("resume storage", err)
		}
	}
	return text, nil
}

func uploadReply(text string) string {
	preview := jobs.Truncate(text, uploadPreviewRunes)
	if preview != text {
		preview += "..."
	}
	return fmt.Sprintf("✅ *Resume uploaded successfully!*\n\n*Preview:*\n```\n%s\n```\n\n📝 Now use /search to find jobs!", preview)
}

func hasExtension(filename string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, candidate := range allowed {
		if ext == strings.ToLower(candidate) {
			return true
		}
	}
	return false
}
