package home

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrStorageWrite is returned when a session's artifacts cannot be written.
var ErrStorageWrite = errors.New("storage write failure")

// Artifact file names inside a session directory.
const (
	ResultJSONName  = "res.json"
	ResultImageName = "result.jpg"
)

// sessionDirLayout names session directories by local start time.
const sessionDirLayout = "20060102150405"

// maxStageAttempts bounds the exclusive-create loop.
const maxStageAttempts = 8

// Stager creates one directory per session under root. A directory is never
// reused: when the timestamp name is taken, a short random token is appended.
type Stager struct {
	root string
	now  func() time.Time
}

// NewStager creates a stager rooted at root.
func NewStager(root string) *Stager {
	return &Stager{root: root, now: time.Now}
}

// Root returns the directory sessions are created in.
func (s *Stager) Root() string {
	return s.root
}

// Session is a freshly created session directory.
type Session struct {
	Dir string
}

// Create makes a new session directory.
func (s *Stager) Create() (*Session, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create results directory: %v", ErrStorageWrite, err)
	}

	base := s.now().Format(sessionDirLayout)
	name := base
	for attempt := 0; attempt < maxStageAttempts; attempt++ {
		dir := filepath.Join(s.root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return &Session{Dir: dir}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: failed to create session directory: %v", ErrStorageWrite, err)
		}
		name = base + "-" + uuid.New().String()[:8]
	}
	return nil, fmt.Errorf("%w: no free session directory for %s", ErrStorageWrite, base)
}

// Write stores one artifact. name must be a plain file name.
func (s *Session) Write(name string, data []byte) (string, error) {
	clean := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || clean == "/" || clean == ".." || clean == "" {
		return "", fmt.Errorf("%w: invalid file name %q", ErrStorageWrite, name)
	}
	path := filepath.Join(s.Dir, clean)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return path, nil
}

// Latest returns the most recently named session directory, or "" if none.
func (s *Stager) Latest() (string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	latest := ""
	for _, e := range entries {
		if e.IsDir() && e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", nil
	}
	return filepath.Join(s.root, latest), nil
}
