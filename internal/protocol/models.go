package protocol

// ModeLostConnection is reported in place of the robot's own mode once its
// heartbeat is older than the staleness window.
const ModeLostConnection = "Lost Connection"

// ModeIdle is the mode of the status record before any robot has reported.
const ModeIdle = "Idle"

// RemoteConfig is the operator-controlled configuration pulled by robots on
// every heartbeat. It is always replaced as a whole.
type RemoteConfig struct {
	MaxTempTrigger  float64 `json:"max_temp_trigger"`
	ScanWaitTimeSec uint32  `json:"scan_wait_time_sec"`
	SystemEnabled   bool    `json:"system_enabled"`
	PanStepDegrees  float64 `json:"pan_step_degrees"`
	// APIKey is nil when unset; an empty string is a distinct, set value.
	APIKey *string `json:"api_key"`
}

// Clone returns a copy that shares no memory with c.
func (c RemoteConfig) Clone() RemoteConfig {
	if c.APIKey != nil {
		key := *c.APIKey
		c.APIKey = &key
	}
	return c
}

// LiveStatus is the latest state reported by a robot.
type LiveStatus struct {
	LastUpdate     int64   `json:"last_update"`
	TurbineToken   string  `json:"turbine_token"`
	Mode           string  `json:"mode"`
	CurrentAngle   float64 `json:"current_angle"`
	CurrentMaxTemp float64 `json:"current_max_temp"`
	IsOnline       bool    `json:"is_online"`
}

// AlertRecord summarizes one stored capture.
type AlertRecord struct {
	ID           string  `json:"id"`
	Timestamp    int64   `json:"timestamp"`
	TurbineToken string  `json:"turbine_token"`
	MaxTemp      float64 `json:"max_temp"`
	Angle        float64 `json:"angle"`
	DatasetPath  string  `json:"dataset_path"`
}

// FileEntry is one row of the capture file listing.
type FileEntry struct {
	Name   string  `json:"name"`
	SizeKB float64 `json:"size_kb"`
	Date   string  `json:"date"`
	Type   string  `json:"type"`
}

// MatrixView is the heat-map payload. Pixels are row-major, Width*Height long.
type MatrixView struct {
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	MinTemp float32   `json:"min_temp"`
	MaxTemp float32   `json:"max_temp"`
	Pixels  []float32 `json:"pixels"`
}

// EvolutionPoint is the per-frame summary of a capture.
type EvolutionPoint struct {
	FrameIndex int     `json:"frame_index"`
	MaxTemp    float32 `json:"max_temp"`
	AvgTemp    float32 `json:"avg_temp"`
}

// TurbineSummary is one entry of the fleet listing.
type TurbineSummary struct {
	TurbineToken string `json:"turbine_token"`
	FirstSeen    int64  `json:"first_seen"`
	LastHeard    int64  `json:"last_heard"`
	LastMode     string `json:"last_mode"`
	Heartbeats   int    `json:"heartbeats"`
	Uploads      int    `json:"uploads"`
	IsOnline     bool   `json:"is_online"`
}

// Acknowledgements returned as JSON strings by the robot endpoints.
const (
	UploadStatusSuccess = "upload_success"
	TelemetryAck        = "ack"
	EventRecorded       = "event_recorded"
)

// HealthMessage is the plain-text body of the health check.
const HealthMessage = "GSU Cloud Online"
