package types

// HeartbeatRequest is the liveness ping a checkpoint terminal (desk
// console or QR scanner) sends periodically.
type HeartbeatRequest struct {
	CheckpointID    string `json:"checkpoint_id"`
	SoftwareVersion string `json:"software_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_s,omitempty"`
	ScannerOnline   *bool  `json:"scanner_online,omitempty"`
	IP              string `json:"ip,omitempty"`
}

type HeartbeatResponse struct {
	OK           bool   `json:"ok"`
	Known        bool   `json:"known"`
	CheckpointID string `json:"checkpoint_id"`
	ServerTime   string `json:"server_time"`
}
