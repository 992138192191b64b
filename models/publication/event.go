package publication

import (
	"encoding/json"
	"fmt"

	"krakenflow/internal/wire"
)

const (
	eventHeartbeat    = "heartbeat"
	eventSystemStatus = "systemStatus"
)

// Heartbeat is sent by the server about once a second when no other
// publication is flowing.
type Heartbeat struct{}

func (Heartbeat) isPublication() {}

type heartbeatWire struct {
	Event string `json:"event"`
}

func (h *Heartbeat) UnmarshalJSON(data []byte) error {
	var w heartbeatWire
	if err := wire.StrictEvent("Heartbeat", data, eventHeartbeat, &w); err != nil {
		return err
	}
	*h = Heartbeat{}
	return nil
}

func (Heartbeat) MarshalJSON() ([]byte, error) {
	return json.Marshal(heartbeatWire{Event: eventHeartbeat})
}

// Status of the exchange reported by SystemStatus.
type Status string

const (
	StatusOnline      Status = "online"
	StatusMaintenance Status = "maintenance"
)

func (s *Status) UnmarshalText(text []byte) error {
	switch Status(text) {
	case StatusOnline, StatusMaintenance:
		*s = Status(text)
		return nil
	}
	return fmt.Errorf("invalid system status %q", text)
}

// SystemStatus is published on connect and on every status change.
type SystemStatus struct {
	ConnectionID uint64
	Status       Status
	Version      string
}

func (SystemStatus) isPublication() {}

type systemStatusWire struct {
	ConnectionID uint64 `json:"connectionID"`
	Event        string `json:"event"`
	Status       Status `json:"status"`
	Version      string `json:"version"`
}

func (s *SystemStatus) UnmarshalJSON(data []byte) error {
	var w systemStatusWire
	if err := wire.StrictEvent("SystemStatus", data, eventSystemStatus, &w, "connectionID", "status", "version"); err != nil {
		return err
	}
	*s = SystemStatus{ConnectionID: w.ConnectionID, Status: w.Status, Version: w.Version}
	return nil
}

func (s SystemStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(systemStatusWire{
		ConnectionID: s.ConnectionID,
		Event:        eventSystemStatus,
		Status:       s.Status,
		Version:      s.Version,
	})
}
