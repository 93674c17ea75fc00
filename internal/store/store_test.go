package store

import (
	"testing"
	"time"

	"github.com/jholhewres/goquartz/internal/trigger"
)

func jobDetail(name string, concurrentDisallowed, durable bool) trigger.JobDetail {
	return trigger.JobDetail{
		Key:                           trigger.JobKey{Group: trigger.DefaultGroup, Name: name},
		TypeID:                        "noop",
		Durable:                       durable,
		ConcurrentExecutionDisallowed: concurrentDisallowed,
	}
}

func simpleTrigger(name, job string, start time.Time) *trigger.Simple {
	return trigger.NewSimple(
		trigger.TriggerKey{Group: trigger.DefaultGroup, Name: name},
		trigger.JobKey{Group: trigger.DefaultGroup, Name: job},
		start, trigger.UnlimitedRepeatCount, time.Second,
	)
}

func TestStoreJobTriggerRoundTrip(t *testing.T) {
	s := New(0)
	d := jobDetail("j1", false, true)
	if err := s.StoreJob(d, false); err != nil {
		t.Fatalf("StoreJob: %v", err)
	}
	got, ok := s.RetrieveJob(d.Key)
	if !ok {
		t.Fatal("expected job to round-trip")
	}
	if got.Key != d.Key || got.TypeID != d.TypeID || got.Durable != d.Durable {
		t.Fatalf("got %+v want %+v", got, d)
	}
}

func TestStoreJobReplaceFalseRejectsDuplicate(t *testing.T) {
	s := New(0)
	d := jobDetail("j1", false, true)
	if err := s.StoreJob(d, false); err != nil {
		t.Fatalf("first store: %v", err)
	}
	if err := s.StoreJob(d, false); err == nil {
		t.Fatal("expected ErrAlreadyExists on second store without replace")
	}
	if err := s.StoreJob(d, true); err != nil {
		t.Fatalf("replace=true should succeed: %v", err)
	}
}

func TestStoreTriggerRequiresExistingJob(t *testing.T) {
	s := New(0)
	tr := simpleTrigger("t1", "nosuchjob", time.Now())
	if err := s.StoreTrigger(tr, false); err == nil {
		t.Fatal("expected ErrDependencyMissing storing a trigger for a nonexistent job")
	}
}

func TestRemoveLastTriggerPrunesNonDurableJob(t *testing.T) {
	s := New(0)
	d := jobDetail("j1", false, false)
	s.StoreJob(d, false)
	tr := simpleTrigger("t1", "j1", time.Now())
	s.StoreTrigger(tr, false)

	s.RemoveTrigger(tr.Key())
	if s.CheckJobExists(d.Key) {
		t.Fatal("expected non-durable job with no triggers to be pruned")
	}
}

func TestRemoveLastTriggerKeepsDurableJob(t *testing.T) {
	s := New(0)
	d := jobDetail("j1", false, true)
	s.StoreJob(d, false)
	tr := simpleTrigger("t1", "j1", time.Now())
	s.StoreTrigger(tr, false)

	s.RemoveTrigger(tr.Key())
	if !s.CheckJobExists(d.Key) {
		t.Fatal("expected durable job to survive losing its last trigger")
	}
}

func TestReplaceTriggerRejectsJobKeyMismatch(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", false, true), false)
	s.StoreJob(jobDetail("j2", false, true), false)
	t1 := simpleTrigger("t1", "j1", time.Now())
	s.StoreTrigger(t1, false)

	t2 := simpleTrigger("t1", "j2", time.Now())
	// replaceTrigger succeeds only if the new trigger's jobKey matches the
	// old one's; a trigger naming a nonexistent job is rejected as well.
	t3 := simpleTrigger("t1", "nosuchjob", time.Now())
	if ok, err := s.ReplaceTrigger(t3.Key(), t3); err == nil || ok {
		t.Fatal("expected ReplaceTrigger to fail for a trigger naming a nonexistent job")
	}
	if ok, err := s.ReplaceTrigger(t1.Key(), t2); err == nil || ok {
		t.Fatal("expected ReplaceTrigger to reject a trigger targeting a different existing job")
	}
}

func TestAcquireNextTriggersEmpty(t *testing.T) {
	s := New(0)
	out := s.AcquireNextTriggers(time.Now(), time.Now(), 10, time.Second)
	if len(out) != 0 {
		t.Fatalf("expected empty result on empty store, got %d", len(out))
	}
}

func TestAcquireOrdersByFireTimeThenPriority(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", false, true), false)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	low := simpleTrigger("low", "j1", now)
	low.SetPriority(1)
	high := simpleTrigger("high", "j1", now)
	high.SetPriority(9)
	s.StoreTrigger(low, false)
	s.StoreTrigger(high, false)

	acquired := s.AcquireNextTriggers(now, now, 10, time.Second)
	if len(acquired) != 2 {
		t.Fatalf("expected 2 acquired, got %d", len(acquired))
	}
	if acquired[0].Key().Name != "high" {
		t.Fatalf("expected higher-priority trigger first, got %s", acquired[0].Key().Name)
	}
}

func TestAcquireSkipsSecondTriggerOfConcurrentDisallowedJob(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", true, true), false)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := simpleTrigger("a", "j1", now)
	b := simpleTrigger("b", "j1", now)
	s.StoreTrigger(a, false)
	s.StoreTrigger(b, false)

	acquired := s.AcquireNextTriggers(now, now, 10, time.Second)
	if len(acquired) != 1 {
		t.Fatalf("expected only one trigger acquired for a concurrency-disallowed job, got %d", len(acquired))
	}
}

func TestConcurrencyBlocksOtherTriggersUntilComplete(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", true, true), false)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := simpleTrigger("a", "j1", now)
	b := simpleTrigger("b", "j1", now)
	s.StoreTrigger(a, false)
	s.StoreTrigger(b, false)

	acquired := s.AcquireNextTriggers(now, now, 10, time.Second)
	if len(acquired) != 1 {
		t.Fatalf("expected 1 acquired, got %d", len(acquired))
	}
	firedKey := acquired[0].Key()

	bundles := s.TriggersFired([]trigger.TriggerKey{firedKey}, now)
	if len(bundles) != 1 {
		t.Fatalf("expected 1 fired bundle, got %d", len(bundles))
	}

	otherKey := a.Key()
	if firedKey == otherKey {
		otherKey = b.Key()
	}
	if got := s.GetTriggerState(otherKey); got != StateBlocked {
		t.Fatalf("expected other trigger BLOCKED, got %v", got)
	}

	s.TriggeredJobComplete(firedKey, trigger.JobKey{Group: trigger.DefaultGroup, Name: "j1"}, SetTriggerComplete, nil)
	if got := s.GetTriggerState(otherKey); got != StateWaiting {
		t.Fatalf("expected other trigger back to WAITING after completion, got %v", got)
	}
}

func TestPauseAllThenResumeAllRestoresWaitingSet(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", false, true), false)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := simpleTrigger("t1", "j1", now.Add(time.Hour))
	s.StoreTrigger(tr, false)

	before := s.GetTriggerState(tr.Key())
	s.PauseAll()
	if got := s.GetTriggerState(tr.Key()); got != StatePaused {
		t.Fatalf("expected PAUSED after PauseAll, got %v", got)
	}
	s.ResumeAll()
	after := s.GetTriggerState(tr.Key())
	if after != before {
		t.Fatalf("expected state restored to %v, got %v", before, after)
	}
}

func TestPauseTriggerIdempotent(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", false, true), false)
	tr := simpleTrigger("t1", "j1", time.Now().Add(time.Hour))
	s.StoreTrigger(tr, false)

	s.PauseTrigger(tr.Key())
	s.PauseTrigger(tr.Key())
	if got := s.GetTriggerState(tr.Key()); got != StatePaused {
		t.Fatalf("expected PAUSED, got %v", got)
	}
}

func TestRemoveCalendarFailsWhenReferenced(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", false, true), false)
	s.StoreCalendar("cal1", nil, false, false)

	tr := simpleTrigger("t1", "j1", time.Now())
	tr.SetCalendarName("cal1")
	s.StoreTrigger(tr, false)

	if _, err := s.RemoveCalendar("cal1"); err == nil {
		t.Fatal("expected removing a referenced calendar to fail")
	}
	s.RemoveTrigger(tr.Key())
	if _, err := s.RemoveCalendar("cal1"); err != nil {
		t.Fatalf("expected removal to succeed once unreferenced: %v", err)
	}
}

func TestPauseTriggersGroupMatcherRecordsEachMatchedGroup(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", false, true), false)
	future := time.Now().Add(time.Hour)

	a := trigger.NewSimple(trigger.TriggerKey{Group: "G1", Name: "a"}, trigger.JobKey{Group: trigger.DefaultGroup, Name: "j1"}, future, 0, time.Second)
	b := trigger.NewSimple(trigger.TriggerKey{Group: "G2", Name: "b"}, trigger.JobKey{Group: trigger.DefaultGroup, Name: "j1"}, future, 0, time.Second)
	s.StoreTrigger(a, false)
	s.StoreTrigger(b, false)

	groups := s.PauseTriggers(trigger.GroupStartsWith("G"))
	if len(groups) != 2 {
		t.Fatalf("expected both matched groups recorded, got %v", groups)
	}
	for _, g := range groups {
		if g != "G1" && g != "G2" {
			t.Fatalf("unexpected group recorded: %s (should be matched group, not matcher value)", g)
		}
	}
}

func TestRemoveTriggerPrunesFromEveryIndex(t *testing.T) {
	s := New(0)
	s.StoreJob(jobDetail("j1", false, true), false)
	tr := simpleTrigger("t1", "j1", time.Now())
	s.StoreTrigger(tr, false)

	s.RemoveTrigger(tr.Key())
	if s.CheckTriggerExists(tr.Key()) {
		t.Fatal("trigger should no longer exist")
	}
	groups := s.GetTriggerGroupNames()
	for _, g := range groups {
		if g == trigger.DefaultGroup {
			t.Fatalf("expected group index pruned once empty, still has %s", g)
		}
	}
	acquired := s.AcquireNextTriggers(time.Now(), time.Now(), 10, time.Second)
	if len(acquired) != 0 {
		t.Fatal("removed trigger must not be acquirable")
	}
}

func TestApplyMisfireOnAcquire(t *testing.T) {
	s := New(50 * time.Millisecond)
	s.StoreJob(jobDetail("j1", false, true), false)
	start := time.Now().Add(-time.Hour)
	tr := simpleTrigger("t1", "j1", start)
	tr.SetMisfireInstruction(trigger.MisfireFireNow)
	s.StoreTrigger(tr, false)

	now := time.Now()
	acquired := s.AcquireNextTriggers(now, now, 10, time.Second)
	if len(acquired) != 1 {
		t.Fatalf("expected the stale trigger to misfire-recover and be acquired, got %d", len(acquired))
	}
}

func TestMisfireQueuesListenerEvents(t *testing.T) {
	s := New(50 * time.Millisecond)
	s.StoreJob(jobDetail("j1", false, true), false)
	tr := simpleTrigger("t1", "j1", time.Now().Add(-time.Hour))
	tr.SetMisfireInstruction(trigger.MisfireFireNow)
	s.StoreTrigger(tr, false)

	now := time.Now()
	s.AcquireNextTriggers(now, now, 10, time.Second)

	misfired, finalized := s.DrainMisfireEvents()
	if len(misfired) != 1 || misfired[0].Key().Name != "t1" {
		t.Fatalf("expected one misfired trigger event for t1, got %v", misfired)
	}
	if len(finalized) != 0 {
		t.Fatalf("recovered trigger must not be finalized, got %v", finalized)
	}

	misfired, _ = s.DrainMisfireEvents()
	if len(misfired) != 0 {
		t.Fatal("drain must clear the pending events")
	}
}

func TestMisfirePastEndTimeFinalizesTrigger(t *testing.T) {
	s := New(50 * time.Millisecond)
	s.StoreJob(jobDetail("j1", false, true), false)
	tr := simpleTrigger("t1", "j1", time.Now().Add(-2*time.Hour))
	tr.SetEndTime(time.Now().Add(-time.Hour))
	tr.SetMisfireInstruction(trigger.MisfireFireNow)
	s.StoreTrigger(tr, false)

	now := time.Now()
	acquired := s.AcquireNextTriggers(now, now, 10, time.Second)
	if len(acquired) != 0 {
		t.Fatalf("exhausted trigger must not be acquired, got %d", len(acquired))
	}

	misfired, finalized := s.DrainMisfireEvents()
	if len(misfired) != 1 {
		t.Fatalf("expected one misfire event, got %d", len(misfired))
	}
	if len(finalized) != 1 {
		t.Fatalf("expected the exhausted trigger to be finalized, got %d", len(finalized))
	}
	if st := s.GetTriggerState(tr.Key()); st != StateComplete {
		t.Fatalf("expected COMPLETE after misfire exhaustion, got %v", st)
	}
}

// A misfire that slides a trigger's fire time far into the future must not
// leave it parked at its old (now stale) position in the time index: a
// genuinely due trigger sitting behind it must still be acquired in the
// same call.
func TestMisfireRecoveryDoesNotStarveLaterDueTrigger(t *testing.T) {
	s := New(50 * time.Millisecond)
	s.StoreJob(jobDetail("j1", false, true), false)
	s.StoreJob(jobDetail("j2", false, true), false)

	now := time.Now()

	stale := trigger.NewSimple(
		trigger.TriggerKey{Group: trigger.DefaultGroup, Name: "stale"},
		trigger.JobKey{Group: trigger.DefaultGroup, Name: "j1"},
		now.Add(-90*time.Minute), trigger.UnlimitedRepeatCount, 2*time.Hour,
	)
	stale.SetMisfireInstruction(trigger.MisfireRescheduleNextWithExistingCount)
	s.StoreTrigger(stale, false)

	due := simpleTrigger("due", "j2", now)
	s.StoreTrigger(due, false)

	acquired := s.AcquireNextTriggers(now, now, 10, time.Second)
	if len(acquired) != 1 {
		t.Fatalf("expected exactly the due trigger to be acquired, got %d", len(acquired))
	}
	if acquired[0].Key().Name != "due" {
		t.Fatalf("expected trigger %q to be acquired, got %q (misfired trigger starved it)", "due", acquired[0].Key().Name)
	}
}
