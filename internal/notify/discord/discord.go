// Package discord implements a fire-and-forget scheduler notification sink
// over Discord using discordgo. Outbound-only: the scheduler never needs
// to receive Discord messages.
package discord

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jholhewres/goquartz/internal/trigger"
)

// Config holds Discord notifier configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// ChannelID is the Discord channel messages are posted to.
	ChannelID string
}

// Notifier implements events.SchedulerListener, posting formatted messages
// to a Discord channel on scheduler errors, job pause/resume, and trigger
// finalization.
type Notifier struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session
}

// New opens a Discord session for cfg. The session is never connected to
// the gateway; notifications only need the REST API.
func New(cfg Config, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Notifier{cfg: cfg, logger: logger.With("component", "notify.discord"), session: session}, nil
}

func (n *Notifier) post(content string) {
	if _, err := n.session.ChannelMessageSend(n.cfg.ChannelID, content); err != nil {
		n.logger.Error("discord: send message failed", "error", err)
	}
}

// SchedulerStarted is a no-op; only errors, job pause/resume, and trigger
// finalization are forwarded to Discord.
func (n *Notifier) SchedulerStarted()      {}
func (n *Notifier) SchedulerPaused()       {}
func (n *Notifier) SchedulerResumed()      {}
func (n *Notifier) SchedulerShuttingDown() {}
func (n *Notifier) SchedulerShutdown()     {}
func (n *Notifier) SchedulingDataCleared() {}

func (n *Notifier) JobAdded(detail trigger.JobDetail) {}
func (n *Notifier) JobDeleted(key trigger.JobKey)     {}

func (n *Notifier) JobPaused(key trigger.JobKey) {
	n.post(fmt.Sprintf(":pause_button: job `%s` paused", key))
}

func (n *Notifier) JobResumed(key trigger.JobKey) {
	n.post(fmt.Sprintf(":arrow_forward: job `%s` resumed", key))
}

func (n *Notifier) TriggerPaused(key trigger.TriggerKey)  {}
func (n *Notifier) TriggerResumed(key trigger.TriggerKey) {}

func (n *Notifier) TriggerFinalized(t trigger.Trigger) {
	n.post(fmt.Sprintf(":checkered_flag: trigger `%s` finalized (job `%s`)", t.Key(), t.JobKey()))
}

func (n *Notifier) SchedulerError(msg string, err error, at time.Time) {
	n.post(fmt.Sprintf(":rotating_light: scheduler error at %s: %s: %v", at.Format(time.RFC3339), msg, err))
}
