package status

import (
	"encoding/json"

	"github.com/farmhub/farmhub-core/internal/device"
)

// Status is the outcome of one device probe.
//
// It is a tagged record rather than an untyped merge: Online is always
// present and authoritative, and Telemetry carries whatever fields the
// device reported when it was reachable. The JSON form flattens the two
// into telemetry fields plus an "online" key, matching what the dashboard
// and MQTT consumers expect.
type Status struct {
	Online    bool
	Telemetry map[string]any
}

// MarshalJSON flattens telemetry fields and the online flag into one object.
// The online flag always wins over a telemetry field of the same name.
func (s Status) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(s.Telemetry)+1)
	for k, v := range s.Telemetry {
		merged[k] = v
	}
	merged["online"] = s.Online
	return json.Marshal(merged)
}

// UnmarshalJSON splits the flattened object back into the tagged form.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if online, ok := raw["online"].(bool); ok {
		s.Online = online
	}
	delete(raw, "online")
	if len(raw) > 0 {
		s.Telemetry = raw
	} else {
		s.Telemetry = nil
	}
	return nil
}

// Report pairs a device's registry metadata with its probe outcome.
type Report struct {
	device.Device
	Status Status `json:"status"`
}

// Sweep is one whole-fleet poll result, keyed by device ID.
// It always contains exactly one entry per registered device.
type Sweep map[string]Report
