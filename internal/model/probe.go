package model

// ProbeResult is the outcome of testing one candidate mount path.
// It is built once per probe and never mutated afterwards.
type ProbeResult struct {
	Path         string   `json:"path"`
	Exists       bool     `json:"exists"`
	Readable     bool     `json:"readable"`
	Writable     bool     `json:"writable"`
	LogFileCount int      `json:"log_files_count"`
	ResponseTime *float64 `json:"response_time"` // seconds; nil when never measured
	Error        string   `json:"error,omitempty"`
}

// Accessible reports whether the path can be used as a log directory.
func (r ProbeResult) Accessible() bool {
	return r.Exists && r.Readable
}

// Connectivity summarises reachability of the file-sharing server.
type Connectivity struct {
	Server              string `json:"server"`
	PingOK              bool   `json:"ping_success"`
	PortOpen            bool   `json:"smb_port_open"`
	MountServiceRunning bool   `json:"gvfs_running"`
}
