package models

// RunManifest 运行清单，每个阶段追加一行
type RunManifest struct {
	RunID             string            `json:"run_id"`
	CreatedAt         string            `json:"created_at"`
	Stage             string            `json:"stage"`
	VCSRevision       string            `json:"vcs_revision"`
	GoVersion         string            `json:"go_version"`
	Platform          string            `json:"platform"`
	Seed              int64             `json:"seed"`
	NEval             int               `json:"n_eval"`
	ConfigFingerprint string            `json:"config_fingerprint"`
	ConfigPaths       map[string]string `json:"config_paths"`
	Outputs           map[string]any    `json:"outputs,omitempty"`
}
