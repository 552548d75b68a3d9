package runlog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Prune removes old run logs from dir, keeping the newest keepCount files.
// The run-latest.log symlink is never counted or removed.
func Prune(dir string, keepCount int) error {
	if keepCount <= 0 {
		keepCount = 5
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var logFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "run-") && strings.HasSuffix(name, ".log") && name != "run-latest.log" {
			logFiles = append(logFiles, name)
		}
	}

	// Filenames embed UTC timestamps, so lexicographic order is age order.
	sort.Sort(sort.Reverse(sort.StringSlice(logFiles)))

	for i := keepCount; i < len(logFiles); i++ {
		_ = os.Remove(filepath.Join(dir, logFiles[i]))
	}
	return nil
}
