package persist

import (
	"testing"
	"time"
)

func TestFormatParseTimeRoundTrip(t *testing.T) {
	want := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.FixedZone("X", 3600))
	s := FormatTime(want)
	got, err := ParseTime(s)
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected FormatTime to normalize to UTC, got location %v", got.Location())
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	if _, err := ParseTime("not-a-timestamp"); err == nil {
		t.Fatal("expected an error parsing a malformed timestamp")
	}
}

func TestMarshalUnmarshalTagsRoundTrip(t *testing.T) {
	tags := []string{"nightly", "critical"}
	b, err := MarshalTags(tags)
	if err != nil {
		t.Fatalf("MarshalTags: %v", err)
	}
	got, err := UnmarshalTags(b)
	if err != nil {
		t.Fatalf("UnmarshalTags: %v", err)
	}
	if len(got) != 2 || got[0] != "nightly" || got[1] != "critical" {
		t.Fatalf("got %v", got)
	}
}

func TestMarshalTagsEmptyYieldsNil(t *testing.T) {
	b, err := MarshalTags(nil)
	if err != nil || b != nil {
		t.Fatalf("expected nil, nil for an empty tag list, got %v, %v", b, err)
	}
	got, err := UnmarshalTags(nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil unmarshalling empty data, got %v, %v", got, err)
	}
}
