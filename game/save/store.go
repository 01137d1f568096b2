package save

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kasuganosora/miridle/server/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound    = errors.New("save: not found")
	ErrInvalidName = errors.New("save: invalid name")
)

// Store keeps encoded snapshots by character name.
type Store interface {
	Put(ctx context.Context, name string, version int, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// Summarizer is implemented by stores that also keep a queryable
// character row. PutSummary fills in row.ID.
type Summarizer interface {
	PutSummary(ctx context.Context, row *model.Character) error
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// FileStore writes one file per character under Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.Dir, name+".sav")
}

// Put writes to a temporary file and renames it over the old save.
func (fs *FileStore) Put(_ context.Context, name string, _ int, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(fs.Dir, 0o755); err != nil {
		return fmt.Errorf("save: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(fs.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("save: create: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: write: %w", err)
	}
	return os.Rename(tmp.Name(), fs.path(name))
}

func (fs *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fs.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// DBStore keeps snapshots in the save_records table and the character
// summary in characters.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore { return &DBStore{db: db} }

func (s *DBStore) Put(ctx context.Context, name string, version int, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	rec := &model.SaveRecord{Name: name, Version: version, Payload: data}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "payload", "updated_at"}),
	}).Create(rec).Error
}

func (s *DBStore) Get(ctx context.Context, name string) ([]byte, error) {
	var rec model.SaveRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return rec.Payload, nil
}

func (s *DBStore) PutSummary(ctx context.Context, row *model.Character) error {
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"profession", "level", "xp", "gold", "ingots", "map_key",
			"cultivation_path", "cultivation_level", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return err
	}
	var stored model.Character
	if err := db.Select("id").Where("name = ?", row.Name).First(&stored).Error; err != nil {
		return err
	}
	row.ID = stored.ID
	return nil
}
