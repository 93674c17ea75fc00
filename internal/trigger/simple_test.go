package trigger

import (
	"testing"
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
)

func tk(name string) TriggerKey { return TriggerKey{Group: DefaultGroup, Name: name} }
func jk(name string) JobKey     { return JobKey{Group: DefaultGroup, Name: name} }

func TestSimpleRepeatZeroFiresOnce(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSimple(tk("t1"), jk("j1"), start, 0, time.Second)

	first, ok := s.ComputeFirstFireTime(nil)
	if !ok || !first.Equal(start) {
		t.Fatalf("first fire: got %v ok=%v want %v", first, ok, start)
	}

	s.Triggered(nil)
	if _, ok := s.NextFireTime(); ok {
		t.Fatal("expected nextFireTime nil after single fire with repeatCount=0")
	}
	prev, ok := s.PreviousFireTime()
	if !ok || !prev.Equal(start) {
		t.Fatalf("previousFireTime: got %v ok=%v", prev, ok)
	}
}

func TestSimpleRepeatsAtInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSimple(tk("t2"), jk("j1"), start, 3, 10*time.Millisecond)

	s.ComputeFirstFireTime(nil)
	var fires []time.Time
	for i := 0; i < 10; i++ {
		next, ok := s.NextFireTime()
		if !ok {
			break
		}
		fires = append(fires, next)
		s.Triggered(nil)
	}
	if len(fires) != 4 { // initial + 3 repeats
		t.Fatalf("expected 4 fires, got %d: %v", len(fires), fires)
	}
	for i := 1; i < len(fires); i++ {
		if !fires[i].Equal(fires[i-1].Add(10 * time.Millisecond)) {
			t.Fatalf("fire %d not spaced by interval: %v -> %v", i, fires[i-1], fires[i])
		}
	}
}

func TestSimpleEndTimeTruncates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSimple(tk("t3"), jk("j1"), start, UnlimitedRepeatCount, time.Hour)
	s.SetEndTime(start.Add(90 * time.Minute))

	s.ComputeFirstFireTime(nil)
	s.Triggered(nil) // now at start+1h
	if _, ok := s.NextFireTime(); !ok {
		t.Fatal("expected a fire time still within endTime after first repeat")
	}
	s.Triggered(nil) // candidate start+2h is past endTime
	if _, ok := s.NextFireTime(); ok {
		t.Fatal("expected nextFireTime nil once past endTime")
	}
}

func TestSimpleMisfireFireNow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSimple(tk("t4"), jk("j1"), start, 5, 10*time.Millisecond)
	s.SetMisfireInstruction(MisfireFireNow)
	s.ComputeFirstFireTime(nil)

	now := start.Add(10 * time.Second)
	s.UpdateAfterMisfire(nil, now)
	next, ok := s.NextFireTime()
	if !ok || !next.Equal(now) {
		t.Fatalf("got %v ok=%v want %v", next, ok, now)
	}
}

func TestSimpleSkipsCalendarExcludedInstants(t *testing.T) {
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC) // a Friday
	s := NewSimple(tk("t5"), jk("j1"), start, 3, 24*time.Hour)
	cal := calendar.NewWeekly(time.UTC)

	s.ComputeFirstFireTime(cal)
	fires := []time.Time{}
	for i := 0; i < 10; i++ {
		next, ok := s.NextFireTime()
		if !ok {
			break
		}
		fires = append(fires, next)
		s.Triggered(cal)
	}
	for _, f := range fires {
		wd := f.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("fire landed on excluded weekend day: %v", f)
		}
		if f.Hour() != 9 {
			t.Fatalf("skipping the weekend must keep the pattern's time-of-day, got %v", f)
		}
	}
	// Fri 09:00 fires, Sat/Sun slots are consumed by the weekend skip, and
	// the schedule's fixed endpoint (start + 3 intervals) leaves Mon 09:00
	// as the final fire.
	want := []time.Time{start, start.AddDate(0, 0, 3)}
	if len(fires) != len(want) {
		t.Fatalf("expected fires %v, got %v", want, fires)
	}
	for i := range want {
		if !fires[i].Equal(want[i]) {
			t.Fatalf("fire %d: got %v want %v", i, fires[i], want[i])
		}
	}
}

// Daily 09:00 trigger over a weekend calendar with a New Year's holiday
// stacked as base: the weekend and the holiday are skipped, every other
// weekday fires at 09:00.
func TestSimpleDailyOverStackedHolidayCalendar(t *testing.T) {
	weekly := calendar.NewWeekly(time.UTC)
	holiday := calendar.NewHoliday(time.UTC)
	holiday.AddExcludedDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	holiday.SetBaseCalendar(weekly)

	start := time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC) // a Monday
	s := NewSimple(tk("t6"), jk("j1"), start, UnlimitedRepeatCount, 24*time.Hour)

	s.ComputeFirstFireTime(holiday)
	var fires []time.Time
	for i := 0; i < 4; i++ {
		next, ok := s.NextFireTime()
		if !ok {
			break
		}
		fires = append(fires, next)
		s.Triggered(holiday)
	}

	want := []time.Time{
		time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC), // Mon
		time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC), // Tue
		time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),   // Thu (Jan 1 is the holiday)
		time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC),   // Fri
	}
	if len(fires) != len(want) {
		t.Fatalf("expected %d fires, got %d: %v", len(want), len(fires), fires)
	}
	for i := range want {
		if !fires[i].Equal(want[i]) {
			t.Fatalf("fire %d: got %v want %v", i, fires[i], want[i])
		}
	}
}
