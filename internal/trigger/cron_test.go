package trigger

import (
	"testing"
	"time"
)

func TestCronTriggerDailyFires(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ct, err := NewCron(tk("c1"), jk("j1"), start, "0 0 10 ? * *", time.UTC)
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}

	first, ok := ct.ComputeFirstFireTime(nil)
	want := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if !ok || !first.Equal(want) {
		t.Fatalf("got %v ok=%v want %v", first, ok, want)
	}

	ct.Triggered(nil)
	next, ok := ct.NextFireTime()
	want2 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	if !ok || !next.Equal(want2) {
		t.Fatalf("got %v ok=%v want %v", next, ok, want2)
	}
}

func TestCronTriggerMisfireFireOnceNow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ct, err := NewCron(tk("c2"), jk("j1"), start, "0 0 10 ? * *", time.UTC)
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}
	ct.ComputeFirstFireTime(nil)
	ct.SetMisfireInstruction(MisfireFireOnceNow)

	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	ct.UpdateAfterMisfire(nil, now)
	next, ok := ct.NextFireTime()
	if !ok || !next.Equal(now) {
		t.Fatalf("got %v ok=%v want %v", next, ok, now)
	}
}

func TestCronTriggerMisfireDoNothingSlidesForward(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ct, err := NewCron(tk("c3"), jk("j1"), start, "0 0 10 ? * *", time.UTC)
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}
	ct.ComputeFirstFireTime(nil)
	ct.SetMisfireInstruction(MisfireDoNothing)

	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	ct.UpdateAfterMisfire(nil, now)
	next, ok := ct.NextFireTime()
	want := time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)
	if !ok || !next.Equal(want) {
		t.Fatalf("got %v ok=%v want %v", next, ok, want)
	}
}

func TestCronTriggerEndTimeTruncates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ct, err := NewCron(tk("c4"), jk("j1"), start, "0 0 10 ? * *", time.UTC)
	if err != nil {
		t.Fatalf("NewCron: %v", err)
	}
	ct.SetEndTime(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	ct.ComputeFirstFireTime(nil)
	ct.Triggered(nil)
	if _, ok := ct.NextFireTime(); ok {
		t.Fatal("expected nextFireTime nil past endTime")
	}
}
