package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	lo1, hi1 := PairKey(a, b)
	lo2, hi2 := PairKey(b, a)
	if lo1 != a || hi1 != b {
		t.Fatalf("PairKey(a, b) = (%s, %s)", lo1, hi1)
	}
	if lo1 != lo2 || hi1 != hi2 {
		t.Fatalf("PairKey not symmetric: (%s, %s) vs (%s, %s)", lo1, hi1, lo2, hi2)
	}
}

func TestMessageTypeForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want MessageType
	}{
		{"", MessageTypeText},
		{"image/png", MessageTypeImage},
		{"video/mp4", MessageTypeVideo},
		{"audio/mpeg", MessageTypeAudio},
		{"application/pdf", MessageTypeFile},
		{"text/plain", MessageTypeFile},
	}
	for _, tt := range tests {
		if got := MessageTypeForMIME(tt.mime); got != tt.want {
			t.Errorf("MessageTypeForMIME(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestVisibilityAndUnread(t *testing.T) {
	sender, receiver := uuid.New(), uuid.New()
	m := Message{SenderID: sender}

	if !m.VisibleTo(sender) || !m.VisibleTo(receiver) {
		t.Fatal("fresh message should be visible to both sides")
	}
	if !m.UnreadFor(receiver) || m.UnreadFor(sender) {
		t.Fatal("fresh message is unread for the receiver only")
	}

	m.DeletedByReceiver = true
	if m.VisibleTo(receiver) {
		t.Fatal("receiver-deleted message visible to receiver")
	}
	if !m.VisibleTo(sender) {
		t.Fatal("receiver delete must not hide it from the sender")
	}
	if m.UnreadFor(receiver) {
		t.Fatal("hidden message must not count as unread")
	}

	m.DeletedBySender = true
	if m.VisibleTo(sender) {
		t.Fatal("sender-deleted message visible to sender")
	}
}

func TestUserOnlineSince(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-5 * time.Minute)
	recent := now.Add(-time.Minute)
	stale := now.Add(-10 * time.Minute)

	if !(&User{IsOnline: true, LastSeen: &recent}).OnlineSince(cutoff) {
		t.Fatal("recent ping should be online")
	}
	if (&User{IsOnline: true, LastSeen: &stale}).OnlineSince(cutoff) {
		t.Fatal("stale ping should be offline")
	}
	if (&User{IsOnline: false, LastSeen: &recent}).OnlineSince(cutoff) {
		t.Fatal("logged out user should be offline")
	}
	if (&User{IsOnline: true}).OnlineSince(cutoff) {
		t.Fatal("user without a ping should be offline")
	}
}
