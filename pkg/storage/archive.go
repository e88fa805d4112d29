// Package storage archives completed reconciliation runs on the local
// filesystem. Each run gets its own directory holding copies of every
// artifact plus a metadata JSON file, so past runs stay inspectable after
// the working files beside the input PDF are overwritten by a rerun.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunInfo is the archived metadata of one run.
type RunInfo struct {
	ID         uuid.UUID `json:"id"`
	Document   string    `json:"document"` // input PDF base name
	Profile    string    `json:"profile"`
	Artifacts  []string  `json:"artifacts"` // file names within the run directory
	ArchivedAt time.Time `json:"archived_at"`
}

// Archive stores run outputs under a base directory, one subdirectory per run.
type Archive struct {
	basePath string
}

// NewArchive creates the archive root if needed.
func NewArchive(basePath string) (*Archive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Archive{basePath: basePath}, nil
}

// Save copies the given artifact files into a fresh run directory and writes
// the run metadata. The returned info carries the generated run ID.
func (a *Archive) Save(document, profileID string, artifactPaths []string) (*RunInfo, error) {
	runID := uuid.New()
	runDir := filepath.Join(a.basePath, runID.String())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	info := &RunInfo{
		ID:         runID,
		Document:   sanitizeName(filepath.Base(document)),
		Profile:    profileID,
		ArchivedAt: time.Now().UTC(),
	}

	for _, src := range artifactPaths {
		name := sanitizeName(filepath.Base(src))
		if err := copyFile(src, filepath.Join(runDir, name)); err != nil {
			os.RemoveAll(runDir)
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		info.Artifacts = append(info.Artifacts, name)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		os.RemoveAll(runDir)
		return nil, fmt.Errorf("marshal run metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "run.json"), data, 0644); err != nil {
		os.RemoveAll(runDir)
		return nil, fmt.Errorf("write run metadata: %w", err)
	}

	return info, nil
}

// Get reads the metadata of one archived run.
func (a *Archive) Get(runID uuid.UUID) (*RunInfo, error) {
	data, err := os.ReadFile(filepath.Join(a.basePath, runID.String(), "run.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("read run metadata: %w", err)
	}
	var info RunInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse run metadata: %w", err)
	}
	return &info, nil
}

// List returns every archived run, newest first.
func (a *Archive) List() ([]*RunInfo, error) {
	entries, err := os.ReadDir(a.basePath)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}

	runs := make([]*RunInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := uuid.Parse(entry.Name())
		if err != nil {
			continue
		}
		info, err := a.Get(id)
		if err != nil {
			continue
		}
		runs = append(runs, info)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].ArchivedAt.After(runs[j].ArchivedAt)
	})
	return runs, nil
}

// Open returns a reader for one archived artifact.
func (a *Archive) Open(runID uuid.UUID, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(a.basePath, runID.String(), sanitizeName(name)))
	if err != nil {
		return nil, fmt.Errorf("open archived artifact: %w", err)
	}
	return f, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// sanitizeName strips path separators and shell-unfriendly characters.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
