package telemetry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Reading is one emitted metric record.
type Reading struct {
	EventID   string            `json:"event_id"`
	HostID    string            `json:"host_id"`
	Zone      string            `json:"zone"`
	Timestamp int64             `json:"timestamp"` // milliseconds since epoch
	Metric    Metric            `json:"metric"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit"`
	Tags      map[string]string `json:"tags"`
}

// NewReading packages a simulated value with a fresh event id.
func NewReading(zone, hostID string, m Metric, value float64, ts time.Time) Reading {
	return Reading{
		EventID:   uuid.NewString(),
		HostID:    hostID,
		Zone:      zone,
		Timestamp: ts.UnixMilli(),
		Metric:    m,
		Value:     value,
		Unit:      m.Unit(),
		Tags:      map[string]string{},
	}
}

// Time returns the reading timestamp.
func (r Reading) Time() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// Marshal serializes the reading as a JSON exchange record.
func (r Reading) Marshal() ([]byte, error) {
	if r.Tags == nil {
		r.Tags = map[string]string{}
	}
	return json.Marshal(r)
}

// ParseReading decodes a JSON exchange record.
func ParseReading(b []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(b, &r); err != nil {
		return Reading{}, err
	}
	if r.Tags == nil {
		r.Tags = map[string]string{}
	}
	return r, nil
}
