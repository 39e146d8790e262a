package models

// EntryType is the kind of a remote directory entry.
type EntryType string

const (
	EntryDir  EntryType = "dir"
	EntryFile EntryType = "file"
	EntryLink EntryType = "link"
)

// DirEntry is one entry of a remote directory listing.
type DirEntry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}

// PushResult is the outcome of pushing one local file.
type PushResult struct {
	LocalPath string `json:"local_path"`
	Output    string `json:"output"`
	Error     string `json:"error,omitempty"`
}
