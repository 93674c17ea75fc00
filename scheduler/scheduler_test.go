package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jholhewres/goquartz/internal/events"
	"github.com/jholhewres/goquartz/internal/jobfactory"
)

type countingJob struct {
	n *int32
}

func (j *countingJob) Execute(jec *JobExecutionContext) (JobDataMap, error) {
	atomic.AddInt32(j.n, 1)
	return nil, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *int32) {
	t.Helper()
	var n int32
	reg := jobfactory.NewRegistry()
	reg.Register("counting", func() Job { return &countingJob{n: &n} })
	s := New(reg, WithIdleWaitTime(20*time.Millisecond), WithWorkerPoolSize(4))
	t.Cleanup(func() { s.Shutdown(true) })
	return s, &n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// A single-shot trigger fires exactly once.
func TestSingleShotTriggerFiresOnce(t *testing.T) {
	s, n := newTestScheduler(t)
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: false}
	tr := NewSimpleTrigger(NewTriggerKey("t1", DefaultGroup), detail.Key, time.Now().Add(10*time.Millisecond), 0, 0)

	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	s.Start()

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(n) == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(n); got != 1 {
		t.Fatalf("expected exactly 1 execution, got %d", got)
	}
}

// A repeating trigger fires more than once.
func TestRepeatingTriggerFiresMultipleTimes(t *testing.T) {
	s, n := newTestScheduler(t)
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: true}
	tr := NewSimpleTrigger(NewTriggerKey("t1", DefaultGroup), detail.Key, time.Now().Add(10*time.Millisecond), 3, 20*time.Millisecond)

	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	s.Start()

	waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(n) >= 4 })
	if got := atomic.LoadInt32(n); got < 4 {
		t.Fatalf("expected 4 total executions (1 + 3 repeats), got %d", got)
	}
}

func TestUnscheduleJobPreventsFutureFire(t *testing.T) {
	s, n := newTestScheduler(t)
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: false}
	key := NewTriggerKey("t1", DefaultGroup)
	tr := NewSimpleTrigger(key, detail.Key, time.Now().Add(40*time.Millisecond), 0, 0)

	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	removed, err := s.UnscheduleJob(key)
	if err != nil || !removed {
		t.Fatalf("UnscheduleJob: removed=%v err=%v", removed, err)
	}
	s.Start()

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(n); got != 0 {
		t.Fatalf("expected unscheduled trigger to never fire, got %d executions", got)
	}
}

func TestRescheduleJobRejectsJobKeyMismatch(t *testing.T) {
	s, _ := newTestScheduler(t)
	d1 := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: true}
	d2 := JobDetail{Key: NewJobKey("j2", DefaultGroup), TypeID: "counting", Durable: true}
	if err := s.AddJob(d1, false, true); err != nil {
		t.Fatalf("AddJob d1: %v", err)
	}
	if err := s.AddJob(d2, false, true); err != nil {
		t.Fatalf("AddJob d2: %v", err)
	}

	key := NewTriggerKey("t1", DefaultGroup)
	tr := NewSimpleTrigger(key, d1.Key, time.Now().Add(time.Hour), 0, 0)
	if _, _, err := s.ScheduleJob(d1, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}

	mismatched := NewSimpleTrigger(key, d2.Key, time.Now().Add(time.Hour), 0, 0)
	if _, _, err := s.RescheduleJob(key, mismatched); err != ErrJobKeyMismatch {
		t.Fatalf("expected ErrJobKeyMismatch, got %v", err)
	}

	replacement := NewSimpleTrigger(key, d1.Key, time.Now().Add(2*time.Hour), 0, 0)
	if _, ok, err := s.RescheduleJob(key, replacement); err != nil || !ok {
		t.Fatalf("expected reschedule to same job to succeed, got ok=%v err=%v", ok, err)
	}
}

// Pausing a trigger suspends firing until resumed.
func TestPauseTriggerSuspendsFiring(t *testing.T) {
	s, n := newTestScheduler(t)
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: false}
	key := NewTriggerKey("t1", DefaultGroup)
	tr := NewSimpleTrigger(key, detail.Key, time.Now().Add(20*time.Millisecond), 0, 0)

	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	if err := s.PauseTrigger(key); err != nil {
		t.Fatalf("PauseTrigger: %v", err)
	}
	s.Start()

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(n); got != 0 {
		t.Fatalf("expected paused trigger to not fire, got %d executions", got)
	}

	if err := s.ResumeTrigger(key); err != nil {
		t.Fatalf("ResumeTrigger: %v", err)
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(n) == 1 })
}

func TestTriggerJobFiresAdHocExecution(t *testing.T) {
	s, n := newTestScheduler(t)
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: true}
	if err := s.AddJob(detail, false, true); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	s.Start()

	if err := s.TriggerJob(detail.Key, nil); err != nil {
		t.Fatalf("TriggerJob: %v", err)
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(n) == 1 })
}

func TestTriggerJobUnknownJobErrors(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.TriggerJob(NewJobKey("nosuch", DefaultGroup), nil); err == nil {
		t.Fatal("expected error triggering an unregistered job")
	}
}

func TestStandbyHaltsAcquisitionResumeRestores(t *testing.T) {
	s, n := newTestScheduler(t)
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: false}
	tr := NewSimpleTrigger(NewTriggerKey("t1", DefaultGroup), detail.Key, time.Now().Add(20*time.Millisecond), 0, 0)
	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}

	s.Standby()
	s.Start()
	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(n); got != 0 {
		t.Fatalf("expected standby scheduler to not fire, got %d", got)
	}

	s.Resume()
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(n) == 1 })
}

func TestShutdownWaitDrainsInFlightJob(t *testing.T) {
	reg := jobfactory.NewRegistry()
	var started, finished int32
	reg.Register("slow", func() Job {
		return jobFunc(func(jec *JobExecutionContext) (JobDataMap, error) {
			atomic.StoreInt32(&started, 1)
			time.Sleep(40 * time.Millisecond)
			atomic.StoreInt32(&finished, 1)
			return nil, nil
		})
	})
	s := New(reg, WithIdleWaitTime(10*time.Millisecond))
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "slow", Durable: false}
	tr := NewSimpleTrigger(NewTriggerKey("t1", DefaultGroup), detail.Key, time.Now(), 0, 0)
	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	s.Start()

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&started) == 1 })
	s.Shutdown(true)
	if atomic.LoadInt32(&finished) != 1 {
		t.Fatal("expected Shutdown(true) to wait for the in-flight job to finish")
	}
}

func TestConcurrentScheduleCallsAreSerialized(t *testing.T) {
	s, _ := newTestScheduler(t)
	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			detail := JobDetail{Key: NewJobKey(jobName(i), DefaultGroup), TypeID: "counting", Durable: true}
			tr := NewSimpleTrigger(NewTriggerKey(jobName(i), DefaultGroup), detail.Key, time.Now().Add(time.Hour), 0, 0)
			_, _, err := s.ScheduleJob(detail, tr)
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("ScheduleJob %d: %v", i, err)
		}
	}
	if got := len(s.GetJobGroupNames()); got != 1 {
		t.Fatalf("expected a single job group, got %d", got)
	}
	keys := s.GetJobKeys(AnyGroup())
	if len(keys) != n {
		t.Fatalf("expected %d jobs stored, got %d", n, len(keys))
	}
}

// A job that overrides the default completion instruction must have its
// choice honored even though it reports success, proving the scheduler
// doesn't hard-code NoOp for every non-error run.
func TestJobSelectedCompletionInstructionOverridesDefault(t *testing.T) {
	reg := jobfactory.NewRegistry()
	reg.Register("self-deleting", func() Job {
		return jobFunc(func(jec *JobExecutionContext) (JobDataMap, error) {
			jec.SetCompletionInstruction(DeleteTrigger)
			return nil, nil
		})
	})
	s := New(reg, WithIdleWaitTime(10*time.Millisecond))
	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "self-deleting", Durable: false}
	triggerKey := NewTriggerKey("t1", DefaultGroup)
	tr := NewSimpleTrigger(triggerKey, detail.Key, time.Now(), 0, 0)
	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	s.Start()
	t.Cleanup(func() { s.Shutdown(true) })

	waitFor(t, time.Second, func() bool { return s.GetTriggerState(triggerKey) == StateNone })
	if got := s.GetTriggerState(triggerKey); got != StateNone {
		t.Fatalf("expected trigger to be deleted via explicit DeleteTrigger instruction, state=%v", got)
	}
}

// A trigger whose fire time is already past the misfire threshold at
// startup produces exactly one misfire event before the recovered fire
// happens.
func TestStaleTriggerEmitsSingleMisfireEvent(t *testing.T) {
	reg := jobfactory.NewRegistry()
	var n int32
	reg.Register("counting", func() Job { return &countingJob{n: &n} })
	s := New(reg, WithIdleWaitTime(10*time.Millisecond), WithMisfireThreshold(30*time.Millisecond))
	t.Cleanup(func() { s.Shutdown(true) })

	listener := &recordingTriggerListener{}
	s.AddTriggerListener(listener)

	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "counting", Durable: false}
	tr := NewSimpleTrigger(NewTriggerKey("t1", DefaultGroup), detail.Key, time.Now().Add(-time.Hour), 0, 0)
	tr.SetMisfireInstruction(MisfireFireNow)
	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	s.Start()

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&n) == 1 })
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&listener.misfires) == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&listener.misfires); got != 1 {
		t.Fatalf("expected exactly one misfire event, got %d", got)
	}
}

// A job that picks ReExecuteJob runs again on the same worker without the
// trigger completing in between.
func TestReExecuteJobRunsAgainBeforeCompleting(t *testing.T) {
	reg := jobfactory.NewRegistry()
	var runs int32
	reg.Register("retrying", func() Job {
		return jobFunc(func(jec *JobExecutionContext) (JobDataMap, error) {
			if atomic.AddInt32(&runs, 1) < 3 {
				jec.SetCompletionInstruction(ReExecuteJob)
			}
			return nil, nil
		})
	})
	s := New(reg, WithIdleWaitTime(10*time.Millisecond))
	t.Cleanup(func() { s.Shutdown(true) })

	detail := JobDetail{Key: NewJobKey("j1", DefaultGroup), TypeID: "retrying", Durable: true}
	tr := NewSimpleTrigger(NewTriggerKey("t1", DefaultGroup), detail.Key, time.Now(), 0, 0)
	if _, _, err := s.ScheduleJob(detail, tr); err != nil {
		t.Fatalf("ScheduleJob: %v", err)
	}
	s.Start()

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&runs) == 3 })
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 3 {
		t.Fatalf("expected exactly 3 runs (2 re-executes then done), got %d", got)
	}
}

type recordingTriggerListener struct {
	misfires int32
}

func (l *recordingTriggerListener) Name() string                   { return "recording" }
func (l *recordingTriggerListener) TriggerFired(TriggerFiredBundle) {}
func (l *recordingTriggerListener) VetoJobExecution(TriggerFiredBundle) events.VetoDecision {
	return events.Proceed
}
func (l *recordingTriggerListener) TriggerMisfired(Trigger) { atomic.AddInt32(&l.misfires, 1) }
func (l *recordingTriggerListener) TriggerComplete(TriggerFiredBundle, CompletionInstruction) {}

func jobName(i int) string {
	const letters = "0123456789"
	if i < 10 {
		return "job-" + string(letters[i])
	}
	return "job-" + string(letters[i/10]) + string(letters[i%10])
}

// jobFunc adapts a plain function to the Job interface for tests that need
// custom execution behavior beyond countingJob.
type jobFunc func(*JobExecutionContext) (JobDataMap, error)

func (f jobFunc) Execute(jec *JobExecutionContext) (JobDataMap, error) { return f(jec) }
