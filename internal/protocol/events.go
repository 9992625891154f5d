package protocol

import (
	"encoding/json"
	"time"
)

// HotspotNotification is published when a turbine's captures cross, or fall
// back under, the configured temperature trigger.
type HotspotNotification struct {
	Type         string    `json:"type"` // HOTSPOT_TRIGGERED, HOTSPOT_CLEARED
	TurbineToken string    `json:"turbine_token"`
	MaxTemp      float64   `json:"max_temp"`
	Trigger      float64   `json:"trigger"`
	Angle        float64   `json:"angle"`
	DatasetPath  string    `json:"dataset_path"`
	AlertID      string    `json:"alert_id"`
	StartTime    time.Time `json:"start_time"`
}

const (
	HotspotTypeTriggered = "HOTSPOT_TRIGGERED"
	HotspotTypeCleared   = "HOTSPOT_CLEARED"
)

// StreamEvent is the envelope pushed to operator websocket clients.
type StreamEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	StreamEventStatus  = "status"
	StreamEventAlert   = "alert"
	StreamEventLost    = "lost"
	StreamEventHotspot = "hotspot"
	StreamEventRobot   = "robot_event"
)

// TurbineEvent is a detection reported by the robot itself, ahead of the
// capture upload.
type TurbineEvent struct {
	TurbineToken     string  `json:"turbine_token"`
	CaptureTimestamp uint64  `json:"capture_timestamp"`
	AnglePosition    float32 `json:"angle_position"`
	MaxTempDetected  float32 `json:"max_temp_detected"`
}

// EncodeAlertRecord encodes an AlertRecord to JSON
func EncodeAlertRecord(rec *AlertRecord) ([]byte, error) {
	return json.Marshal(rec)
}

// DecodeAlertRecord decodes JSON to AlertRecord
func DecodeAlertRecord(data []byte) (*AlertRecord, error) {
	var rec AlertRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// EncodeHotspotNotification encodes a HotspotNotification to JSON
func EncodeHotspotNotification(n *HotspotNotification) ([]byte, error) {
	return json.Marshal(n)
}

// DecodeHotspotNotification decodes JSON to HotspotNotification
func DecodeHotspotNotification(data []byte) (*HotspotNotification, error) {
	var n HotspotNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// EncodeStreamEvent wraps a payload in the stream envelope.
func EncodeStreamEvent(eventType string, payload interface{}) ([]byte, error) {
	return json.Marshal(StreamEvent{Type: eventType, Payload: payload})
}
