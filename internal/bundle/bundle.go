// Package bundle loads YAML job/trigger descriptors — the external,
// out-of-core seeding format cmd/goquartzd reads at startup — translating
// each trigger descriptor into this module's trigger types. A trigger may
// name its schedule either in this engine's native Quartz-style cron
// syntax or as a robfig/cron/v3 shorthand ("@every 30s", "@daily", ...),
// which is expanded here before the scheduler ever sees it.
package bundle

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/jholhewres/goquartz/scheduler"
)

// TriggerSpec describes one trigger to attach to a job.
type TriggerSpec struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	Kind  string `yaml:"kind"` // simple | cron | calendar-interval

	StartTime string `yaml:"start_time"` // RFC3339, or "now"
	EndTime   string `yaml:"end_time"`
	Priority  int    `yaml:"priority"`
	Calendar  string `yaml:"calendar"`
	Misfire   string `yaml:"misfire"`
	TimeZone  string `yaml:"timezone"`

	// simple
	RepeatCount    int    `yaml:"repeat_count"`
	RepeatInterval string `yaml:"repeat_interval"`

	// cron: either a native quartz expression or a robfig shorthand.
	Cron     string `yaml:"cron"`
	Schedule string `yaml:"schedule"`

	// calendar-interval
	Interval              int    `yaml:"interval"`
	Unit                  string `yaml:"unit"`
	PreserveHourAcrossDst bool   `yaml:"preserve_hour_across_dst"`
}

// JobSpec describes one job and its triggers.
type JobSpec struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`

	TypeID      string `yaml:"type_id"`
	Description string `yaml:"description"`

	Durable                       bool `yaml:"durable"`
	ConcurrentExecutionDisallowed bool `yaml:"concurrent_execution_disallowed"`
	PersistJobDataAfterExecution  bool `yaml:"persist_job_data_after_execution"`

	Tags []string       `yaml:"tags"`
	Data map[string]any `yaml:"data"`

	Triggers []TriggerSpec `yaml:"triggers"`
}

// File is the top-level shape of a bundle YAML document.
type File struct {
	Jobs []JobSpec `yaml:"jobs"`
}

// Load reads and parses a bundle file from path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: read %q: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("bundle: parse %q: %w", path, err)
	}
	return &f, nil
}

// Build translates a parsed bundle into job/trigger pairs ready for
// Scheduler.ScheduleJobs.
func Build(f *File) ([]scheduler.JobWithTriggers, error) {
	out := make([]scheduler.JobWithTriggers, 0, len(f.Jobs))
	for _, js := range f.Jobs {
		jobKey := scheduler.NewJobKey(js.Name, js.Group)
		detail := scheduler.JobDetail{
			Key:                           jobKey,
			TypeID:                        js.TypeID,
			Description:                   js.Description,
			JobData:                       scheduler.JobDataMap(js.Data),
			Durable:                       js.Durable,
			ConcurrentExecutionDisallowed: js.ConcurrentExecutionDisallowed,
			PersistJobDataAfterExecution:  js.PersistJobDataAfterExecution,
			Tags:                          js.Tags,
		}

		triggers := make([]scheduler.Trigger, 0, len(js.Triggers))
		for _, ts := range js.Triggers {
			t, err := buildTrigger(jobKey, ts)
			if err != nil {
				return nil, fmt.Errorf("bundle: job %s.%s: %w", js.Group, js.Name, err)
			}
			triggers = append(triggers, t)
		}

		out = append(out, scheduler.JobWithTriggers{Detail: detail, Triggers: triggers})
	}
	return out, nil
}

func buildTrigger(jobKey scheduler.JobKey, ts TriggerSpec) (scheduler.Trigger, error) {
	key := scheduler.NewTriggerKey(ts.Name, ts.Group)

	start := time.Now()
	if ts.StartTime != "" && ts.StartTime != "now" {
		parsed, err := time.Parse(time.RFC3339, ts.StartTime)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: parse start_time %q: %w", key, ts.StartTime, err)
		}
		start = parsed
	}

	loc := time.UTC
	if ts.TimeZone != "" {
		parsed, err := time.LoadLocation(ts.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: load timezone %q: %w", key, ts.TimeZone, err)
		}
		loc = parsed
	}

	var t scheduler.Trigger
	switch ts.Kind {
	case "simple":
		interval, err := time.ParseDuration(ts.RepeatInterval)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: parse repeat_interval %q: %w", key, ts.RepeatInterval, err)
		}
		t = scheduler.NewSimpleTrigger(key, jobKey, start, ts.RepeatCount, interval)

	case "calendar-interval":
		unit, err := parseUnit(ts.Unit)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", key, err)
		}
		ci := scheduler.NewCalendarIntervalTrigger(key, jobKey, start, ts.Interval, unit, loc)
		ci.PreserveHourAcrossDst = ts.PreserveHourAcrossDst
		t = ci

	case "cron", "":
		expr, err := resolveCronExpression(ts)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", key, err)
		}
		ct, err := scheduler.NewCronTrigger(key, jobKey, start, expr, loc)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", key, err)
		}
		t = ct

	default:
		return nil, fmt.Errorf("trigger %s: unknown kind %q", key, ts.Kind)
	}

	applyCommonFields(t, ts)
	return t, nil
}

func applyCommonFields(t scheduler.Trigger, ts TriggerSpec) {
	setter := t.(interface {
		SetDescription(string)
		SetCalendarName(string)
		SetPriority(int)
		SetEndTime(time.Time)
		SetMisfireInstruction(scheduler.MisfirePolicy)
	})
	setter.SetCalendarName(ts.Calendar)
	if ts.Priority != 0 {
		setter.SetPriority(ts.Priority)
	}
	if ts.EndTime != "" {
		if parsed, err := time.Parse(time.RFC3339, ts.EndTime); err == nil {
			setter.SetEndTime(parsed)
		}
	}
	setter.SetMisfireInstruction(parseMisfire(ts.Misfire))
}

func parseUnit(s string) (scheduler.IntervalUnit, error) {
	switch s {
	case "millisecond":
		return scheduler.UnitMillisecond, nil
	case "second", "":
		return scheduler.UnitSecond, nil
	case "minute":
		return scheduler.UnitMinute, nil
	case "hour":
		return scheduler.UnitHour, nil
	case "day":
		return scheduler.UnitDay, nil
	case "week":
		return scheduler.UnitWeek, nil
	case "month":
		return scheduler.UnitMonth, nil
	case "year":
		return scheduler.UnitYear, nil
	default:
		return 0, fmt.Errorf("unknown calendar-interval unit %q", s)
	}
}

func parseMisfire(s string) scheduler.MisfirePolicy {
	switch s {
	case "ignore":
		return scheduler.MisfireIgnore
	case "fire-now":
		return scheduler.MisfireFireNow
	case "reschedule-now-existing-count":
		return scheduler.MisfireRescheduleNowWithExistingRepeatCount
	case "reschedule-now-remaining-count":
		return scheduler.MisfireRescheduleNowWithRemainingRepeatCount
	case "reschedule-next-existing-count":
		return scheduler.MisfireRescheduleNextWithExistingCount
	case "reschedule-next-remaining-count":
		return scheduler.MisfireRescheduleNextWithRemainingCount
	case "do-nothing":
		return scheduler.MisfireDoNothing
	case "fire-once-now":
		return scheduler.MisfireFireOnceNow
	default:
		return scheduler.MisfireSmartPolicy
	}
}

// namedDescriptors maps robfig/cron/v3's predefined schedule descriptors to
// an equivalent native quartz-style expression, since this engine's own
// Cron trigger needs the L/W/#-capable field algebra rather than a
// robfig Schedule value.
var namedDescriptors = map[string]string{
	"@yearly":   "0 0 0 1 1 ?",
	"@annually": "0 0 0 1 1 ?",
	"@monthly":  "0 0 0 1 * ?",
	"@weekly":   "0 0 0 ? * 0",
	"@daily":    "0 0 0 * * ?",
	"@midnight": "0 0 0 * * ?",
	"@hourly":   "0 0 * * * ?",
}

// resolveCronExpression returns the native quartz cron expression for a
// trigger descriptor: Cron is used verbatim if set, otherwise Schedule is
// expanded — "@every <duration>" directly via time.ParseDuration, named
// descriptors via the table above, and anything else validated through
// robfig's standard parser before being rejected as unsupported (a bare
// five-field standard cron string has no 1:1 quartz translation for its
// day-of-week numbering without more context, so it is not auto-converted).
func resolveCronExpression(ts TriggerSpec) (string, error) {
	if ts.Cron != "" {
		return ts.Cron, nil
	}
	spec := ts.Schedule
	if spec == "" {
		return "", fmt.Errorf("cron trigger needs either cron or schedule")
	}
	if expr, ok := namedDescriptors[spec]; ok {
		return expr, nil
	}
	if dur, ok, err := parseEveryShorthand(spec); err != nil {
		return "", err
	} else if ok {
		return everyToQuartzExpression(dur)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return "", fmt.Errorf("schedule %q is a standard five-field cron expression; write it as a native quartz `cron` expression instead", spec)
}

func parseEveryShorthand(spec string) (time.Duration, bool, error) {
	const prefix = "@every "
	if len(spec) <= len(prefix) || spec[:len(prefix)] != prefix {
		return 0, false, nil
	}
	dur, err := time.ParseDuration(spec[len(prefix):])
	if err != nil {
		return 0, true, fmt.Errorf("parse %q: %w", spec, err)
	}
	return dur, true, nil
}

// everyToQuartzExpression renders a fixed interval as a seconds-step cron
// field when it is whole seconds evenly dividing a minute, or a
// minutes-step field when it is whole minutes evenly dividing an hour;
// any other interval is rejected, since a calendar-interval trigger
// expresses it instead of cron shorthand.
func everyToQuartzExpression(d time.Duration) (string, error) {
	switch {
	case d >= time.Second && d < time.Minute && d%time.Second == 0 && int64(time.Minute)%int64(d) == 0:
		return fmt.Sprintf("0/%d * * * * ?", int(d/time.Second)), nil
	case d >= time.Minute && d < time.Hour && d%time.Minute == 0 && int64(time.Hour)%int64(d) == 0:
		return fmt.Sprintf("0 0/%d * * * ?", int(d/time.Minute)), nil
	default:
		return "", fmt.Errorf("@every %s has no exact cron equivalent; use a calendar-interval trigger", d)
	}
}
