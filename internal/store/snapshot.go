package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
	"github.com/jholhewres/goquartz/internal/persist"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// Export captures the store's entire state as a persist.Snapshot, suitable
// for handing to a persist.Snapshotter. It does not mutate the store.
func (s *Store) Export() (persist.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := persist.Snapshot{TakenAt: time.Now()}

	for _, detail := range s.jobsByKey {
		data, err := json.Marshal(detail.JobData)
		if err != nil {
			return persist.Snapshot{}, fmt.Errorf("store: marshal job data for %s: %w", detail.Key, err)
		}
		snap.Jobs = append(snap.Jobs, persist.JobRecord{
			Name:                          detail.Key.Name,
			Group:                         detail.Key.Group,
			TypeID:                        detail.TypeID,
			Description:                   detail.Description,
			JobDataJSON:                   data,
			Durable:                       detail.Durable,
			ConcurrentExecutionDisallowed: detail.ConcurrentExecutionDisallowed,
			PersistJobDataAfterExecution:  detail.PersistJobDataAfterExecution,
			Tags:                          append([]string(nil), detail.Tags...),
		})
	}

	for key, w := range s.triggersByKey {
		rec, err := triggerToRecord(key, w.Trigger)
		if err != nil {
			return persist.Snapshot{}, err
		}
		snap.Triggers = append(snap.Triggers, rec)
	}

	for name, cal := range s.calendarsByName {
		rec, err := calendarToRecord(name, cal)
		if err != nil {
			return persist.Snapshot{}, err
		}
		snap.Calendars = append(snap.Calendars, rec)
	}

	snap.PausedJobGroups = setToSlice(s.pausedJobGroups)
	snap.PausedTriggerGroups = setToSlice(s.pausedTriggerGroups)
	for jobKey := range s.blockedJobs {
		snap.BlockedJobs = append(snap.BlockedJobs, persist.BlockedJob{Name: jobKey.Name, Group: jobKey.Group})
	}

	return snap, nil
}

// Import replaces the store's entire state with snap. It is meant for
// cold-start recovery on a freshly constructed, not-yet-started Store.
func (s *Store) Import(snap persist.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()

	for _, rec := range snap.Calendars {
		cal, err := calendarFromRecord(rec)
		if err != nil {
			return err
		}
		s.calendarsByName[rec.Name] = cal
	}

	for _, rec := range snap.Jobs {
		var data trigger.JobDataMap
		if len(rec.JobDataJSON) > 0 {
			if err := json.Unmarshal(rec.JobDataJSON, &data); err != nil {
				return fmt.Errorf("store: unmarshal job data for %s.%s: %w", rec.Group, rec.Name, err)
			}
		}
		detail := trigger.JobDetail{
			Key:                           trigger.JobKey{Name: rec.Name, Group: rec.Group},
			TypeID:                        rec.TypeID,
			Description:                   rec.Description,
			JobData:                       data,
			Durable:                       rec.Durable,
			ConcurrentExecutionDisallowed: rec.ConcurrentExecutionDisallowed,
			PersistJobDataAfterExecution:  rec.PersistJobDataAfterExecution,
			Tags:                          append([]string(nil), rec.Tags...),
		}
		s.jobsByKey[detail.Key] = detail
		s.addToGroupIndex(s.jobsByGroup, detail.Key.Group, detail.Key)
	}

	for _, g := range snap.PausedJobGroups {
		s.pausedJobGroups[g] = struct{}{}
	}
	for _, g := range snap.PausedTriggerGroups {
		s.pausedTriggerGroups[g] = struct{}{}
	}
	for _, bj := range snap.BlockedJobs {
		s.blockedJobs[trigger.JobKey{Name: bj.Name, Group: bj.Group}] = struct{}{}
	}

	for _, rec := range snap.Triggers {
		t, err := triggerFromRecord(rec)
		if err != nil {
			return err
		}
		cal := s.lookupCalendar(t.CalendarName())
		w := &TriggerWrapper{Trigger: t}
		s.applyPauseState(w)
		if w.State == StateWaiting {
			if _, ok := t.NextFireTime(); !ok {
				t.ComputeFirstFireTime(cal)
			}
			if _, ok := t.NextFireTime(); ok {
				s.timeTriggers.insert(w)
			}
		}
		s.triggersByKey[t.Key()] = w
		s.addToTriggerGroupIndex(t.Key().Group, t.Key())
	}

	return nil
}

func (s *Store) clearLocked() {
	s.jobsByKey = make(map[trigger.JobKey]trigger.JobDetail)
	s.triggersByKey = make(map[trigger.TriggerKey]*TriggerWrapper)
	s.jobsByGroup = make(map[string]map[trigger.JobKey]struct{})
	s.triggersByGroup = make(map[string]map[trigger.TriggerKey]struct{})
	s.timeTriggers = timeIndex{}
	s.calendarsByName = make(map[string]calendar.Calendar)
	s.pausedTriggerGroups = make(map[string]struct{})
	s.pausedJobGroups = make(map[string]struct{})
	s.blockedJobs = make(map[trigger.JobKey]struct{})
	s.pendingMisfired = nil
	s.pendingFinalized = nil
}

func triggerToRecord(key trigger.TriggerKey, t trigger.Trigger) (persist.TriggerRecord, error) {
	rec := persist.TriggerRecord{
		Name:               key.Name,
		Group:              key.Group,
		JobName:            t.JobKey().Name,
		JobGroup:           t.JobKey().Group,
		Description:        t.Description(),
		CalendarName:       t.CalendarName(),
		Priority:           t.Priority(),
		StartTime:          t.StartTime(),
		MisfireInstruction: int(t.MisfireInstruction()),
	}
	if end, ok := t.EndTime(); ok {
		rec.EndTime, rec.HasEnd = end, true
	}
	data, err := json.Marshal(t.JobData())
	if err != nil {
		return persist.TriggerRecord{}, fmt.Errorf("store: marshal trigger job data for %s: %w", key, err)
	}
	rec.JobDataJSON = data

	switch tt := t.(type) {
	case *trigger.Simple:
		rec.Kind = "simple"
		rec.ConfigJSON, err = json.Marshal(persist.SimpleConfig{
			RepeatCount:    tt.RepeatCount,
			RepeatInterval: tt.RepeatInterval,
			TimesTriggered: tt.TimesTriggered,
		})
	case *trigger.Cron:
		rec.Kind = "cron"
		rec.ConfigJSON, err = json.Marshal(persist.CronConfig{Expression: tt.Expression()})
	case *trigger.CalendarInterval:
		rec.Kind = "calendarinterval"
		tz := "UTC"
		if tt.TimeZone != nil {
			tz = tt.TimeZone.String()
		}
		rec.ConfigJSON, err = json.Marshal(persist.CalendarIntervalConfig{
			Interval:              tt.Interval,
			Unit:                  int(tt.Unit),
			TimesTriggered:        tt.TimesTriggered,
			TimeZone:              tz,
			PreserveHourAcrossDst: tt.PreserveHourAcrossDst,
		})
	default:
		return persist.TriggerRecord{}, fmt.Errorf("store: unknown trigger kind %T", t)
	}
	if err != nil {
		return persist.TriggerRecord{}, fmt.Errorf("store: marshal trigger config for %s: %w", key, err)
	}
	return rec, nil
}

func triggerFromRecord(rec persist.TriggerRecord) (trigger.Trigger, error) {
	key := trigger.TriggerKey{Name: rec.Name, Group: rec.Group}
	jobKey := trigger.JobKey{Name: rec.JobName, Group: rec.JobGroup}

	var data trigger.JobDataMap
	if len(rec.JobDataJSON) > 0 {
		if err := json.Unmarshal(rec.JobDataJSON, &data); err != nil {
			return nil, fmt.Errorf("store: unmarshal trigger job data for %s: %w", key, err)
		}
	}

	var t trigger.Trigger
	switch rec.Kind {
	case "simple":
		var cfg persist.SimpleConfig
		if err := json.Unmarshal(rec.ConfigJSON, &cfg); err != nil {
			return nil, fmt.Errorf("store: unmarshal simple config for %s: %w", key, err)
		}
		s := trigger.NewSimple(key, jobKey, rec.StartTime, cfg.RepeatCount, cfg.RepeatInterval)
		s.TimesTriggered = cfg.TimesTriggered
		t = s
	case "cron":
		var cfg persist.CronConfig
		if err := json.Unmarshal(rec.ConfigJSON, &cfg); err != nil {
			return nil, fmt.Errorf("store: unmarshal cron config for %s: %w", key, err)
		}
		c, err := trigger.NewCron(key, jobKey, rec.StartTime, cfg.Expression, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("store: rebuild cron trigger %s: %w", key, err)
		}
		t = c
	case "calendarinterval":
		var cfg persist.CalendarIntervalConfig
		if err := json.Unmarshal(rec.ConfigJSON, &cfg); err != nil {
			return nil, fmt.Errorf("store: unmarshal calendar-interval config for %s: %w", key, err)
		}
		loc, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			loc = time.UTC
		}
		ci := trigger.NewCalendarInterval(key, jobKey, rec.StartTime, cfg.Interval, trigger.IntervalUnit(cfg.Unit), loc)
		ci.TimesTriggered = cfg.TimesTriggered
		ci.PreserveHourAcrossDst = cfg.PreserveHourAcrossDst
		t = ci
	default:
		return nil, fmt.Errorf("store: unknown persisted trigger kind %q for %s", rec.Kind, key)
	}

	setTriggerCommonFields(t, rec, data)
	return t, nil
}

// commonSetter is implemented by every trigger family via the embedded
// common struct, letting snapshot restore set fields the exported
// constructors don't take directly.
type commonSetter interface {
	SetDescription(string)
	SetCalendarName(string)
	SetPriority(int)
	SetEndTime(time.Time)
	SetMisfireInstruction(trigger.MisfirePolicy)
	SetJobData(trigger.JobDataMap)
}

func setTriggerCommonFields(t trigger.Trigger, rec persist.TriggerRecord, data trigger.JobDataMap) {
	cs := t.(commonSetter)
	cs.SetDescription(rec.Description)
	cs.SetCalendarName(rec.CalendarName)
	cs.SetPriority(rec.Priority)
	if rec.HasEnd {
		cs.SetEndTime(rec.EndTime)
	}
	cs.SetMisfireInstruction(trigger.MisfirePolicy(rec.MisfireInstruction))
	cs.SetJobData(data)
}

func calendarToRecord(name string, cal calendar.Calendar) (persist.CalendarRecord, error) {
	rec := persist.CalendarRecord{Name: name, Description: cal.Description()}
	var err error
	switch c := cal.(type) {
	case *calendar.Annual:
		rec.Kind = "annual"
		rec.ConfigJSON, err = json.Marshal(struct{}{})
	case *calendar.Monthly:
		rec.Kind = "monthly"
		rec.ConfigJSON, err = json.Marshal(struct{}{})
	case *calendar.Weekly:
		rec.Kind = "weekly"
		rec.ConfigJSON, err = json.Marshal(struct{}{})
	case *calendar.Holiday:
		rec.Kind = "holiday"
		rec.ConfigJSON, err = json.Marshal(c.ExcludedDates())
	case *calendar.Cron:
		rec.Kind = "cron"
		rec.ConfigJSON, err = json.Marshal(struct{}{})
	case *calendar.BaseCalendarOnly:
		rec.Kind = "base"
		rec.ConfigJSON, err = json.Marshal(struct{}{})
	default:
		return persist.CalendarRecord{}, fmt.Errorf("store: unknown calendar kind %T for %q", cal, name)
	}
	if err != nil {
		return persist.CalendarRecord{}, fmt.Errorf("store: marshal calendar config for %q: %w", name, err)
	}
	return rec, nil
}

// calendarFromRecord reconstructs a calendar's shape but not its exclusion
// data for kinds whose state lives outside the lightweight config captured
// here (annual/monthly/weekly/cron day-sets, which callers re-populate
// after load via StoreCalendar); Holiday's date list round-trips in full
// since it is the common case for a persisted blackout calendar.
func calendarFromRecord(rec persist.CalendarRecord) (calendar.Calendar, error) {
	var cal calendar.Calendar
	switch rec.Kind {
	case "annual":
		cal = calendar.NewAnnual(time.UTC)
	case "monthly":
		cal = calendar.NewMonthly(time.UTC)
	case "weekly":
		cal = calendar.NewWeekly(time.UTC)
	case "holiday":
		h := calendar.NewHoliday(time.UTC)
		var dates []time.Time
		if len(rec.ConfigJSON) > 0 {
			if err := json.Unmarshal(rec.ConfigJSON, &dates); err != nil {
				return nil, fmt.Errorf("store: unmarshal holiday dates for %q: %w", rec.Name, err)
			}
		}
		for _, d := range dates {
			h.AddExcludedDate(d)
		}
		cal = h
	case "cron":
		// A persisted cron calendar without its expression degrades to a
		// pass-through base calendar; callers that need the exclusion back
		// must re-register it with StoreCalendar after load.
		cal = calendar.NewBase()
	case "base":
		cal = calendar.NewBase()
	default:
		return nil, fmt.Errorf("store: unknown persisted calendar kind %q for %q", rec.Kind, rec.Name)
	}
	cal.SetDescription(rec.Description)
	return cal, nil
}
