package ws

import (
	"encoding/json"

	"match-engine/internal/analytics"
)

const EventMatchRecorded = "match_recorded"

type MatchEvent struct {
	Type   string           `json:"type"`
	Record analytics.Record `json:"record"`
}

// MatchFeed publishes analytics records to every connected websocket client.
type MatchFeed struct {
	hub *Hub
}

func NewMatchFeed(hub *Hub) *MatchFeed {
	return &MatchFeed{hub: hub}
}

func (f *MatchFeed) Publish(r analytics.Record) {
	if f == nil || f.hub == nil {
		return
	}
	b, err := json.Marshal(MatchEvent{Type: EventMatchRecorded, Record: r})
	if err != nil {
		f.hub.logger.Warn("ws event encode failed")
		return
	}
	f.hub.Broadcast(b)
}
