package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nbacli/internal/config"
)

// Manager resolves and inspects paths inside the data tree on behalf of
// the API layer.
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance.
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// ResolveProcessed maps a domain and a slash-relative artifact path to an
// absolute path inside that domain's processed tree. Anything that would
// escape the tree is rejected.
func (m *Manager) ResolveProcessed(domain, rel string) (string, error) {
	if domain == "" || rel == "" {
		return "", fmt.Errorf("domain and path are required")
	}
	if filepath.IsAbs(rel) || strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid artifact path %q", rel)
	}
	root := m.paths.ProcessedDomainDir(domain)
	full := filepath.Join(root, filepath.FromSlash(rel))
	cleanRoot := filepath.Clean(root) + string(filepath.Separator)
	if !strings.HasPrefix(filepath.Clean(full)+string(filepath.Separator), cleanRoot) {
		return "", fmt.Errorf("artifact path %q escapes the processed tree", rel)
	}
	return full, nil
}

// FileExists checks if a file exists at the given absolute path.
func (m *Manager) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GetFileSize returns the size of a file in bytes.
func (m *Manager) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// CheckWritable verifies the directory exists and accepts writes by
// creating and removing a probe file. The health endpoint reports the
// result per directory.
func (m *Manager) CheckWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("write probe in %s: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("remove probe %s: %w", name, err)
	}
	return nil
}
