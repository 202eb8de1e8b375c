package archive

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kass/geo-planner/pkg/geomap"
	"github.com/kass/geo-planner/pkg/models"
	"github.com/kass/geo-planner/pkg/planner"
)

// fileData is the serializable form of the archive
type fileData struct {
	Planners []Planner
}

// FileStore keeps the archive in a single gob file
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(ctx context.Context, p Planner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data.Planners = append(data.Planners, p)
	return s.write(data)
}

func (s *FileStore) List(ctx context.Context) ([]Planner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(data.Planners)
	return data.Planners, nil
}

// ItemsInBox indexes every archived place item and returns those inside box
func (s *FileStore) ItemsInBox(ctx context.Context, box models.BoundingBox) ([]planner.Item, error) {
	planners, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var (
		items   []planner.Item
		markers []geomap.Marker
	)
	for _, p := range planners {
		for _, item := range p.Items {
			if !item.IsPlace() {
				continue
			}
			items = append(items, item)
			markers = append(markers, geomap.Marker{
				Number:   len(items),
				Name:     item.Name,
				Location: item.Place.Location(),
			})
		}
	}

	found, err := geomap.NewMarkerIndex(markers).Search(box)
	if err != nil {
		return nil, err
	}
	out := make([]planner.Item, 0, len(found))
	for _, m := range found {
		out = append(out, items[m.Number-1])
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (fileData, error) {
	var data fileData
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return data, fmt.Errorf("failed to decode data: %w", err)
	}
	return data, nil
}

func (s *FileStore) write(data fileData) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create archive dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode data: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace archive: %w", err)
	}
	return nil
}
