package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// ErrNotFound is returned for an unknown backup id.
var ErrNotFound = errors.New("backup not found")

// Source is the live data a Manager snapshots and restores into.
type Source interface {
	Snapshot(ctx context.Context) (*types.Dataset, error)
	ReplaceAll(ctx context.Context, d *types.Dataset) error
}

// Options configures a Manager.
type Options struct {
	Source Source
	Dir    string
	Now    func() time.Time
	Logger zerolog.Logger
}

// Manager keeps backups as <id>.json files in one directory.
type Manager struct {
	src Source
	dir string
	now func() time.Time
	log zerolog.Logger
}

// NewManager returns a Manager, creating the directory if needed.
func NewManager(opts Options) (*Manager, error) {
	if opts.Dir == "" {
		return nil, errors.New("backup directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		src: opts.Source,
		dir: opts.Dir,
		now: opts.Now,
		log: opts.Logger.With().Str("component", "backup").Logger(),
	}, nil
}

// Create snapshots every entity of every workspace into a new backup.
func (m *Manager) Create(ctx context.Context, kind, description string) (*Document, error) {
	if kind != TypeAuto {
		kind = TypeManual
	}
	d, err := m.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	doc, err := newDocument(*d, uuid.NewString(), kind, description, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.write(doc); err != nil {
		return nil, err
	}
	m.log.Info().Str("id", doc.Metadata.ID).Str("type", kind).Int("entities", d.Len()).Int("size", doc.Metadata.Size).Msg("backup created")
	return doc, nil
}

// List returns the metadata of every backup, newest first. Files that do
// not parse are skipped.
func (m *Manager) List() ([]Metadata, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}
	var out []Metadata
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var head struct {
			Metadata Metadata `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || head.Metadata.ID == "" {
			m.log.Warn().Str("file", e.Name()).Msg("skipping unreadable backup")
			continue
		}
		out = append(out, head.Metadata)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get reads one backup.
func (m *Manager) Get(id string) (*Document, error) {
	raw, err := m.read(id)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding backup %s: %w", id, err)
	}
	return &doc, nil
}

// Delete removes one backup.
func (m *Manager) Delete(id string) error {
	path, err := m.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Prune deletes all but the newest keep backups and returns how many it
// removed. Nothing calls it implicitly; retention is up to the caller.
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	all, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, meta := range all[min(keep, len(all)):] {
		if err := m.Delete(meta.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Restore replaces every live entity with the contents of backup id. It is
// destructive; confirming with the user is the caller's job.
func (m *Manager) Restore(ctx context.Context, id string) error {
	doc, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := m.src.ReplaceAll(ctx, &doc.Data); err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	m.log.Info().Str("id", id).Int("entities", doc.Data.Len()).Msg("backup restored")
	return nil
}

// Import normalizes an external backup file and stores it. The live data
// is not touched.
func (m *Manager) Import(raw []byte) (*Document, error) {
	doc, shape, err := Normalize(raw, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.write(doc); err != nil {
		return nil, err
	}
	m.log.Info().Str("id", doc.Metadata.ID).Str("shape", shape).Msg("backup imported")
	return doc, nil
}

// Export copies backup id to w.
func (m *Manager) Export(id string, w io.Writer) error {
	raw, err := m.read(id)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

func (m *Manager) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return filepath.Join(m.dir, id+".json"), nil
}

func (m *Manager) read(id string) ([]byte, error) {
	path, err := m.path(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return raw, err
}

func (m *Manager) write(doc *Document) error {
	raw, err := doc.encode()
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	path, err := m.path(doc.Metadata.ID)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, raw)
}

// writeFileAtomic writes data through a synced temp file renamed into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
