package history

import "time"

// #region version

// Batch modes recorded with each version.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
	ModeClear   = "clear" // full environment reset
)

// Version is one accepted arena configuration message, stored verbatim.
type Version struct {
	VersionID  string
	ParentID   string
	Payload    []byte
	Source     string // "grpc" | "watch" | "http" | "file"
	Mode       string // ModeReplace | ModeAppend | ModeClear
	ArenaCount int
	CreatedAt  time.Time
}

// #endregion version
