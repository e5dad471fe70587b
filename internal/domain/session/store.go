package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/framenav/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// FileExt is appended to session IDs to name their files
const FileExt = ".session.zst"

// Stored describes one session file
type Stored struct {
	ID      id.SessionID
	Size    int64
	ModTime time.Time
}

// Store persists encoded sessions
type Store interface {
	Save(ctx context.Context, sessionID id.SessionID, data []byte) error
	Load(ctx context.Context, sessionID id.SessionID) ([]byte, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
	List(ctx context.Context, pattern string) ([]Stored, error)
}

// FileStore keeps one file per session in a directory. Writes go through a
// circuit breaker so a failing disk stops taking writes for a while.
type FileStore struct {
	dir     string
	breaker *resilience.Breaker
}

// NewFileStore creates dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &FileStore{
		dir: dir,
		breaker: resilience.New("session-store", resilience.Settings{
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrSessionNotFound)
			},
		}),
	}, nil
}

// Dir returns the directory holding session files
func (s *FileStore) Dir() string {
	return s.dir
}

// Breaker exposes the breaker guarding writes
func (s *FileStore) Breaker() *resilience.Breaker {
	return s.breaker
}

func (s *FileStore) path(sessionID id.SessionID) (string, error) {
	if !id.IsValidPrefixed(sessionID.String(), id.SessionPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, sessionID)
	}
	return filepath.Join(s.dir, sessionID.String()+FileExt), nil
}

// Save writes data atomically: a temp file renamed over the target
func (s *FileStore) Save(ctx context.Context, sessionID id.SessionID, data []byte) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.breaker.Run(func() error {
		tmp, err := os.CreateTemp(s.dir, ".tmp-*")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		defer os.Remove(tmp.Name())

		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write session: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to write session: %w", err)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}
		return nil
	})
}

// Load reads a session file
func (s *FileStore) Load(ctx context.Context, sessionID id.SessionID) ([]byte, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return data, nil
}

// Delete removes a session file
func (s *FileStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.breaker.Run(func() error {
		err := os.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
		}
		return err
	})
}

// List returns stored sessions whose ID matches a glob pattern, newest
// first. An empty pattern matches everything.
func (s *FileStore) List(ctx context.Context, pattern string) ([]Stored, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, ErrInvalidPattern)
	}

	var (
		mu  sync.Mutex
		out []Stored
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if filepath.Clean(path) != s.dir {
				return filepath.SkipDir
			}
			return nil
		}

		name, ok := strings.CutSuffix(d.Name(), FileExt)
		if !ok || !id.IsValidPrefixed(name, id.SessionPrefix) {
			return nil
		}
		if match, _ := doublestar.Match(pattern, name); !match {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		mu.Lock()
		out = append(out, Stored{ID: id.SessionID(name), Size: info.Size(), ModTime: info.ModTime()})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	// ULIDs sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
