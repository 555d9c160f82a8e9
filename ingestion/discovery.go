package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/docindex/core"
)

// Discover lists the regular files of inputDir as FileTasks sorted by
// relative path. Subdirectories are descended only when recursive is set.
// Files whose artifacts would overwrite each other are rejected with
// ErrArtifactCollision before any work starts.
func Discover(inputDir string, recursive bool) ([]core.FileTask, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, inputDir)
	}

	var tasks []core.FileTask
	err = filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inputDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !isRegular(path, d) {
			return nil
		}

		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}
		tasks = append(tasks, core.FileTask{Path: path, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].RelPath < tasks[j].RelPath })
	if err := checkCollisions(tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func checkCollisions(tasks []core.FileTask) error {
	owner := make(map[string]string, len(tasks))
	var clashes []string
	for _, t := range tasks {
		stem := t.ArtifactStem()
		if prev, ok := owner[stem]; ok {
			clashes = append(clashes, prev+" and "+t.RelPath)
			continue
		}
		owner[stem] = t.RelPath
	}
	if len(clashes) > 0 {
		return fmt.Errorf("%w: %s", ErrArtifactCollision, strings.Join(clashes, "; "))
	}
	return nil
}

// isRegular reports whether d is a regular file, following symlinks.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.Mode().IsRegular()
	}
	return d.Type().IsRegular()
}
