// Package trigger implements the three trigger families (simple,
// calendar-interval, cron), their misfire-recovery rules, job descriptors,
// and the key/matcher types the store indexes by.
package trigger

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultGroup is used whenever a key's group is left empty.
const DefaultGroup = "DEFAULT"

// JobKey identifies a JobDetail by (group, name).
type JobKey struct {
	Group string
	Name  string
}

// TriggerKey identifies a Trigger by (group, name).
type TriggerKey struct {
	Group string
	Name  string
}

// NewJobKey returns a JobKey, auto-generating name via uuid when empty and
// defaulting group to DefaultGroup when empty — matching Quartz's behavior
// when a caller builds a job without calling withIdentity().
func NewJobKey(name, group string) JobKey {
	if group == "" {
		group = DefaultGroup
	}
	if name == "" {
		name = uuid.NewString()
	}
	return JobKey{Group: group, Name: name}
}

// NewTriggerKey returns a TriggerKey with the same defaulting rules as
// NewJobKey.
func NewTriggerKey(name, group string) TriggerKey {
	if group == "" {
		group = DefaultGroup
	}
	if name == "" {
		name = uuid.NewString()
	}
	return TriggerKey{Group: group, Name: name}
}

func (k JobKey) String() string     { return k.Group + "." + k.Name }
func (k TriggerKey) String() string { return k.Group + "." + k.Name }

// MatchOperator enumerates the comparison operators a GroupMatcher applies
// to the group component of a key.
type MatchOperator int

const (
	MatchEquals MatchOperator = iota
	MatchStartsWith
	MatchEndsWith
	MatchContains
	MatchAnything
)

// GroupMatcher selects keys by group under one of the five operators.
type GroupMatcher struct {
	Group string
	Op    MatchOperator
}

// GroupEquals matches keys whose group equals g exactly.
func GroupEquals(g string) GroupMatcher { return GroupMatcher{Group: g, Op: MatchEquals} }

// GroupStartsWith matches keys whose group has prefix g.
func GroupStartsWith(g string) GroupMatcher { return GroupMatcher{Group: g, Op: MatchStartsWith} }

// GroupEndsWith matches keys whose group has suffix g.
func GroupEndsWith(g string) GroupMatcher { return GroupMatcher{Group: g, Op: MatchEndsWith} }

// GroupContains matches keys whose group contains g as a substring.
func GroupContains(g string) GroupMatcher { return GroupMatcher{Group: g, Op: MatchContains} }

// AnyGroup matches every group.
func AnyGroup() GroupMatcher { return GroupMatcher{Op: MatchAnything} }

// Matches reports whether group satisfies the matcher.
func (m GroupMatcher) Matches(group string) bool {
	switch m.Op {
	case MatchAnything:
		return true
	case MatchStartsWith:
		return len(group) >= len(m.Group) && group[:len(m.Group)] == m.Group
	case MatchEndsWith:
		return len(group) >= len(m.Group) && group[len(group)-len(m.Group):] == m.Group
	case MatchContains:
		return strings.Contains(group, m.Group)
	default:
		return group == m.Group
	}
}
