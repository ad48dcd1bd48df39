package domain

import (
	"testing"
	"time"
)

func TestNumberCoercion(t *testing.T) {
	conv := NewConversation("sess_x", ChannelWeb)
	conv.Data["a"] = 85000.0
	conv.Data["b"] = float32(720)
	conv.Data["c"] = 42
	conv.Data["d"] = int64(7)
	conv.Data["e"] = "not a number"

	for field, want := range map[string]float64{"a": 85000, "b": 720, "c": 42, "d": 7} {
		got, ok := conv.Number(field)
		if !ok || got != want {
			t.Errorf("Number(%q) = (%v, %v), want (%v, true)", field, got, ok, want)
		}
	}
	if _, ok := conv.Number("e"); ok {
		t.Error("Number() accepted a string value")
	}
	if _, ok := conv.Number("missing"); ok {
		t.Error("Number() accepted a missing field")
	}
}

func TestAppendBumpsActivity(t *testing.T) {
	conv := NewConversation("sess_x", ChannelWeb)
	conv.LastActiveAt = time.Now().Add(-time.Hour)

	conv.Append(SpeakerUser, "hello")
	if len(conv.History) != 1 {
		t.Fatalf("History length = %d, want 1", len(conv.History))
	}
	if conv.IdleFor(30 * time.Minute) {
		t.Error("Append() did not refresh the activity timestamp")
	}
}

func TestRecentTurns(t *testing.T) {
	conv := NewConversation("sess_x", ChannelWeb)
	for i := 0; i < 5; i++ {
		conv.Append(SpeakerUser, "m")
	}

	if got := conv.RecentTurns(3); len(got) != 3 {
		t.Errorf("RecentTurns(3) length = %d, want 3", len(got))
	}
	if got := conv.RecentTurns(10); len(got) != 5 {
		t.Errorf("RecentTurns(10) length = %d, want 5", len(got))
	}
}
