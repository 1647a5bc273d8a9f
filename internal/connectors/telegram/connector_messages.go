package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/connectors"
	"github.com/dwizi/job-agent/internal/gateway"
)

const (
	artifactFilename = "Job_Application.pdf"
	artifactCaption  = "📄 Your application package: cover letter and tailored résumé."
)

func (c *Connector) handleMessage(ctx context.Context, message telegramMessage) error {
	userID := senderID(message)

	var (
		output gateway.MessageOutput
		err    error
	)
	if message.Document != nil {
		output, err = c.ingestDocument(ctx, userID, *message.Document)
	} else {
		text := strings.TrimSpace(message.Text)
		if text == "" {
			text = strings.TrimSpace(message.Caption)
		}
		if text == "" {
			return nil
		}
		output, err = c.gateway.HandleMessage(ctx, gateway.MessageInput{
			Connector:   "telegram",
			UserID:      userID,
			DisplayName: userDisplayName(message.From),
			Text:        c.stripMention(text),
		})
	}
	if err != nil {
		return err
	}
	return c.deliver(ctx, message.Chat.ID, output)
}

// senderID is the session key: the sender, or the chat for anonymous posts.
func senderID(message telegramMessage) string {
	if message.From.ID == 0 {
		return strconv.FormatInt(message.Chat.ID, 10)
	}
	return strconv.FormatInt(message.From.ID, 10)
}

func (c *Connector) ingestDocument(ctx context.Context, userID string, document telegramDocument) (gateway.MessageOutput, error) {
	if document.FileSize > c.maxUploadBytes {
		return gateway.MessageOutput{
			Handled: true,
			Reply:   fmt.Sprintf("❌ File is too large. Please upload a résumé under %d MB.", c.maxUploadBytes>>20),
		}, nil
	}
	data, err := c.fetchDocument(ctx, document.FileID)
	if err != nil {
		c.logger.Warn("resume download failed", "error", err, "user_id", userID)
		return gateway.MessageOutput{
			Handled: true,
			Reply:   agenterr.External("resume download", err).UserText(),
		}, nil
	}
	return c.gateway.IngestResume(ctx, gateway.DocumentInput{
		Connector: "telegram",
		UserID:    userID,
		Filename:  sanitizeFilename(document.FileName),
		Data:      data,
	})
}

func (c *Connector) fetchDocument(ctx context.Context, fileID string) ([]byte, error) {
	filePath, err := c.lookupFilePath(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return c.downloadFile(ctx, filePath)
}

// deliver sends the reply in chunks, then the composed PDF if there is one.
func (c *Connector) deliver(ctx context.Context, chatID int64, output gateway.MessageOutput) error {
	for _, chunk := range connectors.SplitMessage(output.Reply, connectors.MaxMessageRunes) {
		// Telegram rejects empty text.
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if err := c.sendMessage(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	if strings.TrimSpace(output.ArtifactPath) == "" {
		return nil
	}
	if err := c.sendDocument(ctx, chatID, output.ArtifactPath, artifactFilename, artifactCaption); err != nil {
		c.logger.Error("send artifact failed", "error", err, "chat_id", chatID)
		return c.sendMessage(ctx, chatID, "❌ The PDF was generated but could not be sent. Please try /compose again.")
	}
	return nil
}

// stripMention drops "@botname" so group-chat mentions parse like direct messages.
func (c *Connector) stripMention(text string) string {
	if c.botUsername == "" || strings.HasPrefix(text, "/") {
		return text
	}
	mention := "@" + c.botUsername
	index := strings.Index(strings.ToLower(text), strings.ToLower(mention))
	if index < 0 {
		return text
	}
	return strings.TrimSpace(text[:index] + text[index+len(mention):])
}
