package narration

import (
	"regexp"
	"strings"
)

// Tools the narrator may call
const (
	ToolRoll      = "roll"
	ToolHealth    = "health"
	ToolInventory = "inventory"
	ToolCheck     = "check"
	ToolSave      = "save"
)

var commandPattern = regexp.MustCompile(`\[([a-zA-Z_][a-zA-Z0-9_]*)\s*:\s*([^\]]+)\]`)

// Command is one `[tool: args]` call embedded in narration
type Command struct {
	Tool string
	Args []string
	Raw  string
}

// Parse extracts the commands from text in order of appearance. Arguments
// are comma separated and trimmed.
func Parse(text string) []Command {
	matches := commandPattern.FindAllStringSubmatch(text, -1)
	commands := make([]Command, 0, len(matches))
	for _, m := range matches {
		parts := strings.Split(m[2], ",")
		args := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				args = append(args, p)
			}
		}
		commands = append(commands, Command{
			Tool: strings.ToLower(m[1]),
			Args: args,
			Raw:  m[0],
		})
	}
	return commands
}

// Strip removes the commands from text, leaving the prose
func Strip(text string) string {
	stripped := commandPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(stripped), " ")
}
