package store

import (
	"testing"
	"time"

	"github.com/dukerupert/daybreak/internal/model"
)

func TestPushSubscriptionUpsert(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	sub, err := ps.CreateSubscription("https://push.example/abc", "p1", "a1", "Phone")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub == nil || sub.DeviceName != "Phone" {
		t.Fatalf("sub = %+v", sub)
	}

	again, err := ps.CreateSubscription("https://push.example/abc", "p2", "a2", "Tablet")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("id = %d, want %d", again.ID, sub.ID)
	}
	if again.P256dhKey != "p2" || again.DeviceName != "Tablet" {
		t.Errorf("sub = %+v", again)
	}

	subs, err := ps.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subs = %d, want 1", len(subs))
	}

	if err := ps.DeleteByEndpoint("https://push.example/abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := ps.GetByEndpoint("https://push.example/abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestPushSentDedup(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	sent, err := ps.WasSent(model.NotifTypeBlockReminder, "2026-02-05/blk")
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("expected not sent")
	}

	if err := ps.RecordSent(model.NotifTypeBlockReminder, "2026-02-05/blk"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := ps.RecordSent(model.NotifTypeBlockReminder, "2026-02-05/blk"); err != nil {
		t.Fatalf("record twice: %v", err)
	}

	sent, _ = ps.WasSent(model.NotifTypeBlockReminder, "2026-02-05/blk")
	if !sent {
		t.Error("expected sent")
	}

	if err := ps.CleanupSent(time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	sent, _ = ps.WasSent(model.NotifTypeBlockReminder, "2026-02-05/blk")
	if sent {
		t.Error("expected cleanup to remove record")
	}
}
