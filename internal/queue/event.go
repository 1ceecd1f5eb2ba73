// Package queue fans check-in broadcasts out across server instances
// through RabbitMQ. Every instance publishes to one fanout exchange and
// consumes from its own exclusive queue bound to it, then hands each
// message to its local WebSocket hub.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// CheckInExchange is the fanout exchange carrying check-in broadcasts.
const CheckInExchange = "checkins.events"

// encodeBroadcast serialises a broadcast for the wire.
func encodeBroadcast(evt model.CheckInBroadcast) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal broadcast: %w", err)
	}
	return body, nil
}

// decodeBroadcast parses a message body. Messages without barcodes or
// without a tournament are rejected.
func decodeBroadcast(body []byte) (model.CheckInBroadcast, error) {
	var evt model.CheckInBroadcast
	if err := json.Unmarshal(body, &evt); err != nil {
		return model.CheckInBroadcast{}, fmt.Errorf("unmarshal: %w", err)
	}
	if evt.TournamentSlug == "" || len(evt.Barcodes) == 0 {
		return model.CheckInBroadcast{}, fmt.Errorf("broadcast %q missing tournament or barcodes", evt.EventID)
	}
	return evt, nil
}
