package sse

import (
	"time"

	"github.com/intertool/cardinsight_api/internal/models"
)

// Notifier is the interface services use to emit admin dashboard events.
type Notifier interface {
	NotifyLoginLogged(entry *models.LoginLog)
	NotifyAnalysisRecorded(record *models.CardAnalysis)
}

// HubNotifier implements Notifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyLoginLogged(entry *models.LoginLog) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{Event: EventLoginLogged, LoginLog: entry, Timestamp: time.Now()})
}

func (n *HubNotifier) NotifyAnalysisRecorded(record *models.CardAnalysis) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{Event: EventAnalysisRecorded, Analysis: record, Timestamp: time.Now()})
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (NopNotifier) NotifyLoginLogged(*models.LoginLog)          {}
func (NopNotifier) NotifyAnalysisRecorded(*models.CardAnalysis) {}
