package gateway

import "strings"

type SlashCommand struct {
	Name                string
	Description         string
	ArgumentName        string
	ArgumentDescription string
	ArgumentRequired    bool
}

func SlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "start",
			Description: "Start the bot",
		},
		{
			Name:        "help",
			Description: "Show help message",
		},
		{
			Name:                "search",
			Description:         "Search for jobs - /search <keywords> <location>",
			ArgumentName:        "query",
			ArgumentDescription: "Keywords followed by an optional location",
			ArgumentRequired:    true,
		},
		{
			Name:                "customize",
			Description:         "Customize resume - /customize <job_number>",
			ArgumentName:        "job_number",
			ArgumentDescription: "Number from the search results",
			ArgumentRequired:    true,
		},
		{
			Name:        "export",
			Description: "Export jobs to Google Sheets",
		},
		{
			Name:        "resume",
			Description: "Upload your resume",
		},
		{
			Name:                "chat",
			Description:         "Chat about job advice and suggestions",
			ArgumentName:        "message",
			ArgumentDescription: "What you want to ask",
		},
		{
			Name:        "more",
			Description: "Find more jobs from other platforms",
		},
		{
			Name:        "compose",
			Description: "Generate professional PDF CV & Cover Letter",
		},
	}
}

func NormalizeCommandName(command string) string {
	normalized := strings.ToLower(strings.TrimSpace(command))
	if normalized == "" {
		return ""
	}
	return strings.ReplaceAll(normalized, "_", "-")
}

const helpText = `🤖 *Job Agent Bot Commands*

*/search <keywords> <location>*
Search for jobs. Example: /search python developer remote

*/customize <job_number>*
Customize your resume for a specific job from search results.
Example: /customize 1

*/compose*
Compose your customized resume and cover letter into a professional PDF for download.

*/export*
Export all found jobs to your Google Sheet.

*/more*
Find more jobs from other platforms (Remotive, LinkedIn) based on your last search.

*/resume*
Upload a new resume (send as file after this command).

*/chat <any message>*
Chat with me! Ask for job suggestions, career advice, or why you should apply to certain jobs.

*/help*
Show this help message.

---
💡 *Quick Start:*
1. Upload your resume with /resume
2. Search jobs with /search
3. Pick a job number to customize your resume
4. Compose your professional PDF with /compose
5. Export all jobs to Google Sheets with /export`

const startText = `👋 *Welcome to Job Agent Bot!*

I help you find jobs, customize your resume, and track applications.

*Before we start:*
Upload your base resume using /resume

Use /help to see all available commands.

🚀 Ready when you are!`

const resumePrompt = "📄 Please send your resume file (PDF, DOCX, or TXT) as a reply to this message.\n\n" +
	"Just upload the file directly - I'll process it automatically."

const (
	searchUsage    = "❌ Please provide search keywords.\nExample: /search python developer remote"
	customizeUsage = "❌ Usage: /customize <job_number>\nExample: /customize 1"
	customizeNaN   = "❌ Please provide a valid job number.\nExample: /customize 1"
)

// HelpText is exposed for transports that answer before reaching the dispatcher.
func HelpText() string {
	return helpText
}
