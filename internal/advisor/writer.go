// Package advisor turns résumé, job and conversation data into model
// prompts and returns the generated text.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwizi/job-agent/internal/llm"
	"github.com/dwizi/job-agent/internal/session"
)

const defaultTemperature = 0.7

const resumeSystemPrompt = `You are an expert resume writer. Customize the given resume to better match the job description while keeping it truthful.

Guidelines:
- Highlight relevant skills and experiences that match the job requirements
- Reorder sections to emphasize the most relevant qualifications first
- Use keywords from the job description naturally
- Keep the resume concise (1-2 pages)
- Keep section headings in UPPER CASE on their own line
- DO NOT fabricate experience or skills`

const coverLetterSystemPrompt = `You are an expert cover letter writer. Write a compelling, personalized cover letter that connects the candidate's experience with the job requirements.

Guidelines:
- Start with an attention-grabbing opening
- Show genuine interest in the company
- Highlight 2-3 key qualifications that match the role
- Include specific achievements with metrics when possible
- Keep it to 3-4 paragraphs
- End with a clear call to action`

const chatSystemPrompt = `You are a helpful career advisor bot. Use the following context (resume and jobs found) to give advice and suggestions to the user. Answer helpfully and professionally.

CONTEXT:
%s`

type Writer struct {
	model       llm.Completer
	temperature float64
}

func NewWriter(model llm.Completer, temperature float64) *Writer {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Writer{model: model, temperature: temperature}
}

func (w *Writer) CustomizeResume(ctx context.Context, baseResume, jobDescription string) (string, error) {
	prompt := fmt.Sprintf("Base Resume:\n%s\n\nJob Description:\n%s\n\nPlease provide the customized resume:", baseResume, jobDescription)
	return w.complete(ctx, resumeSystemPrompt, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
}

func (w *Writer) CoverLetter(ctx context.Context, resume, jobDescription, company string) (string, error) {
	prompt := fmt.Sprintf("Candidate's Resume:\n%s\n\nJob Description:\n%s\n\nCompany Name: %s\n\nPlease write the cover letter:", resume, jobDescription, company)
	return w.complete(ctx, coverLetterSystemPrompt, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
}

func (w *Writer) Chat(ctx context.Context, history []session.Turn, contextText string) (string, error) {
	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return w.complete(ctx, fmt.Sprintf(chatSystemPrompt, contextText), messages)
}

func (w *Writer) complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	if w.model == nil {
		return "", llm.ErrUnavailable
	}
	reply, err := w.model.Complete(ctx, llm.Request{System: system, Messages: messages, Temperature: w.temperature})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
