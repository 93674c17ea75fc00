package discord

import "testing"

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{ChannelID: "123"}, nil); err == nil {
		t.Fatal("expected an error constructing a notifier without a bot token")
	}
}

func TestNewSucceedsWithToken(t *testing.T) {
	n, err := New(Config{Token: "abc", ChannelID: "123"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n == nil {
		t.Fatal("expected a non-nil notifier")
	}
}
