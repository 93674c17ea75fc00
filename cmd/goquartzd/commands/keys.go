package commands

import (
	"strings"

	"github.com/jholhewres/goquartz/scheduler"
)

// parseJobKey accepts "group.name" or a bare "name" (defaulting to
// scheduler.DefaultGroup), matching the Group.Name textual form
// scheduler.JobKey.String produces.
func parseJobKey(s string) scheduler.JobKey {
	group, name := splitKey(s)
	return scheduler.NewJobKey(name, group)
}

func parseTriggerKey(s string) scheduler.TriggerKey {
	group, name := splitKey(s)
	return scheduler.NewTriggerKey(name, group)
}

func splitKey(s string) (group, name string) {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
