package spa

import (
	"os"
	"sort"
)

// maxListedEntries bounds the diagnostic directory listing.
const maxListedEntries = 200

// BuildInfo describes the build directory for troubleshooting deployments.
type BuildInfo struct {
	BuildDir    string   `json:"buildDir"`
	Exists      bool     `json:"exists"`
	IndexExists bool     `json:"indexExists"`
	AssetsDir   bool     `json:"assetsDir"`
	Entries     []string `json:"entries"`
	Truncated   bool     `json:"truncated,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Inspect lists the top level of root. Directories carry a trailing slash.
func Inspect(root string) BuildInfo {
	info := BuildInfo{BuildDir: root, Entries: []string{}}

	st, err := os.Stat(root)
	if err != nil {
		if !os.IsNotExist(err) {
			info.Error = err.Error()
		}
		return info
	}
	if !st.IsDir() {
		info.Error = "build path is not a directory"
		return info
	}
	info.Exists = true

	entries, err := os.ReadDir(root)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir() && name == "assets":
			info.AssetsDir = true
		case !e.IsDir() && name == IndexFile:
			info.IndexExists = true
		}
		if e.IsDir() {
			name += "/"
		}
		info.Entries = append(info.Entries, name)
	}
	sort.Strings(info.Entries)
	if len(info.Entries) > maxListedEntries {
		info.Entries = info.Entries[:maxListedEntries]
		info.Truncated = true
	}
	return info
}
