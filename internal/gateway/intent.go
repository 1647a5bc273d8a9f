package gateway

import (
	"strconv"
	"strings"

	"github.com/dwizi/job-agent/internal/session"
)

var locationKeywords = map[string]bool{
	"remote": true,
	"hybrid": true,
	"onsite": true,
}

// Intent is the parsed form of one inbound message. Reply carries canned
// text for help, start and usage outcomes.
type Intent struct {
	Action   session.Action
	Keywords string
	Location string
	JobIndex *int
	Text     string
	Reply    string
	Usage    bool
}

// ParseIntent interprets a message without touching any session state.
// Job index bounds are left to the customize handler.
func ParseIntent(text, defaultLocation string) Intent {
	trimmed := strings.TrimSpace(text)
	if defaultLocation == "" {
		defaultLocation = "remote"
	}
	if trimmed == "" {
		return Intent{Action: session.ActionHelp, Reply: helpText}
	}

	if strings.HasPrefix(trimmed, "/") {
		command, arg := splitCommand(trimmed)
		switch command {
		case "start":
			return Intent{Action: session.ActionStart, Text: trimmed, Reply: startText}
		case "help":
			return Intent{Action: session.ActionHelp, Text: trimmed, Reply: helpText}
		case "search":
			return parseSearch(trimmed, arg, defaultLocation)
		case "customize":
			return parseCustomize(trimmed, arg)
		case "export":
			return Intent{Action: session.ActionExport, Text: trimmed}
		case "chat":
			return Intent{Action: session.ActionChat, Text: trimmed}
		case "more":
			return Intent{Action: session.ActionFetchMore, Text: trimmed}
		case "compose":
			return Intent{Action: session.ActionCompose, Text: trimmed}
		case "resume":
			return Intent{Action: session.ActionHelp, Text: trimmed, Reply: resumePrompt}
		}
		return Intent{Action: session.ActionChat, Text: trimmed}
	}

	if n, err := strconv.Atoi(trimmed); err == nil {
		index := n - 1
		return Intent{Action: session.ActionCustomize, Text: trimmed, JobIndex: &index}
	}
	return Intent{Action: session.ActionChat, Text: trimmed}
}

func parseSearch(text, arg, defaultLocation string) Intent {
	tokens := strings.Fields(strings.ToLower(arg))
	keywords, location := splitSearchTokens(tokens, defaultLocation)
	if keywords == "" {
		return Intent{Action: session.ActionHelp, Text: text, Reply: searchUsage, Usage: true}
	}
	return Intent{Action: session.ActionSearch, Text: text, Keywords: keywords, Location: location}
}

// splitSearchTokens treats the last token as the location when it is a known
// location keyword or when more than two tokens were given.
func splitSearchTokens(tokens []string, defaultLocation string) (string, string) {
	if len(tokens) == 0 {
		return "", defaultLocation
	}
	last := tokens[len(tokens)-1]
	if locationKeywords[last] || len(tokens) > 2 {
		return strings.Join(tokens[:len(tokens)-1], " "), last
	}
	return strings.Join(tokens, " "), defaultLocation
}

func parseCustomize(text, arg string) Intent {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return Intent{Action: session.ActionHelp, Text: text, Reply: customizeUsage, Usage: true}
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return Intent{Action: session.ActionHelp, Text: text, Reply: customizeNaN, Usage: true}
	}
	index := n - 1
	return Intent{Action: session.ActionCustomize, Text: text, JobIndex: &index}
}

func splitCommand(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ""
	}
	if strings.HasPrefix(trimmed, "/") {
		trimmed = strings.TrimPrefix(trimmed, "/")
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return "", ""
	}
	command := strings.ToLower(fields[0])
	if idx := strings.Index(command, "@"); idx >= 0 {
		command = command[:idx]
	}
	command = NormalizeCommandName(command)

	if len(fields) == 1 {
		return command, ""
	}
	argStart := strings.IndexAny(trimmed, " \t\n")
	if argStart < 0 {
		return command, ""
	}
	return command, strings.TrimSpace(trimmed[argStart+1:])
}

// lastSearchFromHistory recovers the most recent search command from user
// turns. Sessions created before the query was stored rely on it.
func lastSearchFromHistory(history []session.Turn, defaultLocation string) (string, string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role != session.RoleUser {
			continue
		}
		intent := ParseIntent(turn.Content, defaultLocation)
		if intent.Action == session.ActionSearch {
			return intent.Keywords, intent.Location, true
		}
	}
	return "", "", false
}
