// Package ipc defines the daemon request/response wire protocol and its
// Unix-socket transport. Grounded on daemon/server.rs's DaemonRequest /
// DaemonResponse tagged unions (the authoritative later protocol in the
// original, superseding the older ipc/server.rs snapshot).
package ipc

// Request is one client->daemon message, newline-delimited JSON.
type Request struct {
	Action     string   `json:"action"`
	ProjectDir string   `json:"project_dir,omitempty"`
	Branches   []string `json:"branches,omitempty"`
	RemoteURL  string   `json:"remote_url,omitempty"`
	ID         string   `json:"id,omitempty"`
	All        bool     `json:"all,omitempty"`
	Follow     bool     `json:"f,omitempty"`
}

const (
	ActionAddWatch     = "add_watch"
	ActionRunPipeline  = "run_pipeline"
	ActionStopWatch    = "stop_watch"
	ActionUpWatch      = "up_watch"
	ActionRmWatch      = "rm_watch"
	ActionListWatches  = "list_watches"
	ActionLogsWatches  = "logs_watches"
)

// WatchInfo is one row of a ListWatches response.
type WatchInfo struct {
	Branch       string `json:"branch"`
	ProjectDir   string `json:"project_dir"`
	ShortCommit  string `json:"short_commit"`
	ShortURL     string `json:"short_url"`
	ShortBranch  string `json:"short_branch"`
	RepoName     string `json:"repo_name"`
	ID           string `json:"id"`
	Paused       bool   `json:"paused"`
}

// Response is one daemon->client message. Exactly one of the typed fields
// is populated, selected by Type.
type Response struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Watches []WatchInfo `json:"watches,omitempty"`
	LogPath string      `json:"log_path,omitempty"`
	Follow  bool        `json:"follow,omitempty"`
}

const (
	RespSuccess     = "success"
	RespError       = "error"
	RespListWatches = "list_watches"
	RespLogWatch    = "log_watch"
	RespIgnore      = "ignore" // run_pipeline: ack sent, result streams via logs
	RespNone        = "none"
)
