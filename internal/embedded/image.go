package embedded

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/neuronotes/internal/sqlutil"
)

// Driver connections of modernc.org/sqlite expose the engine's
// serialize/deserialize API through these methods.
type serializer interface {
	Serialize() ([]byte, error)
}

type deserializer interface {
	Deserialize(buf []byte) error
}

var errNoSerializer = errors.New("driver connection does not support serialization")

// serializeLocked returns the database image. The caller must hold b.mu.
func (b *Backend) serializeLocked(ctx context.Context) ([]byte, error) {
	var img []byte
	err := b.conn.Raw(func(dc any) error {
		s, ok := dc.(serializer)
		if !ok {
			return errNoSerializer
		}
		var err error
		img, err = s.Serialize()
		return err
	})
	if errors.Is(err, errNoSerializer) {
		return b.vacuumImageLocked(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return img, nil
}

// vacuumImageLocked produces the image through VACUUM INTO a temporary
// file.
func (b *Backend) vacuumImageLocked(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "neuronotes-image-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "image.db")
	if _, err := b.conn.ExecContext(ctx, `VACUUM INTO ?1`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	return os.ReadFile(path)
}

// load replaces the empty in-memory database with img.
func (b *Backend) load(ctx context.Context, img []byte) error {
	if len(img) == 0 {
		return errors.New("empty image")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.conn.Raw(func(dc any) error {
		d, ok := dc.(deserializer)
		if !ok {
			return errNoSerializer
		}
		return d.Deserialize(img)
	})
	if errors.Is(err, errNoSerializer) {
		return b.attachImageLocked(ctx, img)
	}
	if err != nil {
		return fmt.Errorf("deserialize: %w", err)
	}
	// A blob that is not a database fails on first read, not on
	// deserialize.
	if _, err := sqlutil.Query(ctx, b.conn, `SELECT count(*) AS n FROM sqlite_master`); err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	return nil
}

// attachImageLocked copies every table and index of img into main through
// ATTACH.
func (b *Backend) attachImageLocked(ctx context.Context, img []byte) error {
	dir, err := os.MkdirTemp("", "neuronotes-image-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "image.db")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		return err
	}
	if _, err := b.conn.ExecContext(ctx, `ATTACH DATABASE ?1 AS src`, path); err != nil {
		return fmt.Errorf("attach image: %w", err)
	}
	defer b.conn.ExecContext(context.Background(), `DETACH DATABASE src`)

	objs, err := sqlutil.Query(ctx, b.conn,
		`SELECT type, name, sql FROM src.sqlite_master
WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
ORDER BY CASE type WHEN 'table' THEN 0 ELSE 1 END`)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	for _, o := range objs {
		ddl, _ := o["sql"].(string)
		name, _ := o["name"].(string)
		if _, err := b.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("recreate %s: %w", name, err)
		}
		if o["type"] == "table" {
			copyRows := fmt.Sprintf(`INSERT INTO main."%s" SELECT * FROM src."%s"`, name, name)
			if _, err := b.conn.ExecContext(ctx, copyRows); err != nil {
				return fmt.Errorf("copy %s: %w", name, err)
			}
		}
	}
	return nil
}
