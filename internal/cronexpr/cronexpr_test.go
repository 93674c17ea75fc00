package cronexpr

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, expr string) *Expression {
	t.Helper()
	e, err := Parse(expr, time.UTC)
	if err != nil {
		t.Fatalf("Parse(%q): %v", expr, err)
	}
	return e
}

func TestDailyAtTenAM(t *testing.T) {
	e := mustParse(t, "0 0 10 ? * *")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	want := []time.Time{
		time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC),
	}
	cur := start
	for i, w := range want {
		cur = e.GetNextValidTimeAfter(cur)
		if !cur.Equal(w) {
			t.Fatalf("fire %d: got %v want %v", i, cur, w)
		}
	}
}

func TestIsSatisfiedBy(t *testing.T) {
	e := mustParse(t, "0 0 10 ? * *")
	if !e.IsSatisfiedBy(time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatal("expected match at 10:00:00")
	}
	if e.IsSatisfiedBy(time.Date(2026, 3, 5, 10, 0, 1, 0, time.UTC)) {
		t.Fatal("did not expect match at 10:00:01")
	}
}

func TestEveryFiveMinutes(t *testing.T) {
	e := mustParse(t, "0 0/5 * * * ?")
	from := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	next := e.GetNextValidTimeAfter(from)
	want := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestDayOfMonthLastDay(t *testing.T) {
	e := mustParse(t, "0 0 0 L * ?")
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	next := e.GetNextValidTimeAfter(from)
	want := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC) // 2026 is not a leap year
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNthWeekdayOfMonth(t *testing.T) {
	// Third Friday of every month.
	e := mustParse(t, "0 0 12 ? * FRI#3")
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := e.GetNextValidTimeAfter(from)
	if next.Weekday() != time.Friday {
		t.Fatalf("got weekday %v, want Friday", next.Weekday())
	}
	if (next.Day()-1)/7+1 != 3 {
		t.Fatalf("got day %d, not the 3rd occurrence", next.Day())
	}
}

func TestDomDowOrSemantics(t *testing.T) {
	// Both day-of-month and day-of-week concrete: OR semantics.
	e := mustParse(t, "0 0 0 1 * MON")
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) // a Sunday
	// March 1 2026 is a Sunday; next fire should be March 1 itself (day-of-month match)
	// since from is strictly-before semantics, we start one second before.
	next := e.GetNextValidTimeAfter(from.Add(-time.Second))
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestQuestionMarkOnlyValidOnDomDow(t *testing.T) {
	_, err := Parse("? 0 10 ? * *", time.UTC)
	if err == nil {
		t.Fatal("expected error for ? in seconds field")
	}
}

func TestInvalidExpressionFieldCount(t *testing.T) {
	_, err := Parse("0 0 10", time.UTC)
	if err == nil {
		t.Fatal("expected error for too few fields")
	}
}

func TestYearField(t *testing.T) {
	e := mustParse(t, "0 0 0 1 1 ? 2030")
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := e.GetNextValidTimeAfter(from)
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestGetNextInvalidTimeAfter(t *testing.T) {
	e := mustParse(t, "* * 2 * * ?") // satisfied during the 2 o'clock hour every day
	from := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	next := e.GetNextInvalidTimeAfter(from)
	want := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestStringRoundTrip(t *testing.T) {
	raw := "0 0 10 ? * *"
	e := mustParse(t, raw)
	if e.String() != raw {
		t.Fatalf("got %q want %q", e.String(), raw)
	}
}
