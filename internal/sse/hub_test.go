package sse

import (
	"encoding/json"
	"testing"

	"github.com/intertool/cardinsight_api/internal/models"
)

func TestHubNotifierBroadcastsLoginLogs(t *testing.T) {
	hub := NewHub()
	client := hub.Register("admin-1")
	defer hub.Unregister("admin-1")

	NewHubNotifier(hub).NotifyLoginLogged(&models.LoginLog{ID: "l1", Step: models.StepCredentials, Status: models.LoginStatusFailed})

	select {
	case data := <-client.Events:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Event != EventLoginLogged || ev.LoginLog == nil || ev.LoginLog.ID != "l1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected an event")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	client := hub.Register("slow")
	defer hub.Unregister("slow")

	for i := 0; i < cap(client.Events)+10; i++ {
		hub.Broadcast(&Event{Event: EventLoginLogged})
	}
	if len(client.Events) != cap(client.Events) {
		t.Fatalf("expected full buffer, got %d", len(client.Events))
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	client := hub.Register("c")
	hub.Unregister("c")
	if _, ok := <-client.Events; ok {
		t.Fatal("expected closed channel")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients, got %d", hub.ClientCount())
	}
}
