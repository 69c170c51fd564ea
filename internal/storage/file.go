package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"registration-gateway/internal/models"
)

const masterFile = "all_registrations.json"

// FileStore keeps one JSON file per registration plus a master array in
// all_registrations.json. Writes are serialized within this process only.
type FileStore struct {
	dir   string
	mutex sync.Mutex
	now   func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) Name() string { return DriverFile }

func (s *FileStore) Save(ctx context.Context, fields map[string]any) (*models.RegistrationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.dir, err)
	}

	now := s.now()
	var record *models.RegistrationRecord
	var data []byte
	_, err := nextID(now, func(id string) (bool, error) {
		record = models.NewRegistrationRecord(id, now, fields)
		var err error
		if data, err = json.MarshalIndent(record, "", "  "); err != nil {
			return false, fmt.Errorf("encode registration: %w", err)
		}
		if err := writeExclusive(s.recordPath(id), data); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return true, nil
			}
			return false, err
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	all, err := s.readMaster()
	if err != nil {
		return nil, err
	}
	all = append(all, record)
	master, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", masterFile, err)
	}
	if err := writeAtomic(filepath.Join(s.dir, masterFile), master); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *FileStore) List(ctx context.Context) ([]*models.RegistrationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.readMaster()
}

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.dir, "registration_"+id+".json")
}

func (s *FileStore) readMaster() ([]*models.RegistrationRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, masterFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.RegistrationRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", masterFile, err)
	}

	records := []*models.RegistrationRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", masterFile, err)
	}
	return records, nil
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// writeAtomic replaces path so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
