package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/richardiffusion/mrga/domain/station"
	"github.com/richardiffusion/mrga/infrastructure/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const reloadDebounce = 100 * time.Millisecond

// JSONStore keeps the catalog in memory and persists it to a JSON file
// after every change. External edits to the file are picked up by a
// watcher when enabled.
type JSONStore struct {
	path     string
	mu       sync.RWMutex
	stations []station.Station

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ station.Catalog = (*JSONStore)(nil)

// NewJSONStore loads path. A missing or unreadable file is not an error:
// the store starts from the built-in list and writes the file on the first
// change.
func NewJSONStore(path string, watch bool) (*JSONStore, error) {
	s := &JSONStore{path: filepath.Clean(path)}

	stations, err := readStations(s.path)
	if err != nil {
		logrus.WithError(err).WithField("path", s.path).Warn("Falling back to built-in station list")
		stations = DefaultStations()
	} else {
		logrus.WithFields(logrus.Fields{
			"path":     s.path,
			"stations": len(stations),
		}).Info("Loaded radio stations from file")
	}
	s.stations = stations
	observability.CatalogStations.Set(float64(len(stations)))

	if watch {
		if err := s.startWatcher(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func readStations(path string) ([]station.Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stations []station.Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for i := range stations {
		if stations[i].Tags == nil {
			stations[i].Tags = []string{}
		}
	}
	return stations, nil
}

// save writes atomically through a temp file in the same directory.
func (s *JSONStore) save(stations []station.Station) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stations-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stations); err != nil {
		tmp.Close()
		return fmt.Errorf("encode stations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	logrus.WithFields(logrus.Fields{
		"path":     s.path,
		"stations": len(stations),
	}).Info("Saved radio stations to file")
	return nil
}

// The directory is watched rather than the file, since an atomic replace
// swaps the inode a file watch would be bound to.
func (s *JSONStore) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.watch()
	return nil
}

func (s *JSONStore) watch() {
	defer s.wg.Done()

	var (
		debounceTimer *time.Timer
		debounceMu    sync.Mutex
	)
	defer func() {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceMu.Unlock()
	}()

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, s.reload)
			debounceMu.Unlock()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("Station file watcher error")
		}
	}
}

// reload replaces the in-memory list with the file contents. A broken file
// keeps the current list.
func (s *JSONStore) reload() {
	stations, err := readStations(s.path)
	if err != nil {
		logrus.WithError(err).WithField("path", s.path).Warn("Ignoring unreadable station file change")
		return
	}

	s.mu.Lock()
	s.stations = stations
	s.mu.Unlock()
	observability.CatalogStations.Set(float64(len(stations)))

	logrus.WithFields(logrus.Fields{
		"path":     s.path,
		"stations": len(stations),
	}).Info("Reloaded radio stations from file")
}

func (s *JSONStore) snapshot() []station.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.stations)
}

func cloneAll(stations []station.Station) []station.Station {
	out := make([]station.Station, len(stations))
	for i, st := range stations {
		out[i] = st.Clone()
	}
	return out
}

func (s *JSONStore) List(ctx context.Context) ([]station.Station, error) {
	return s.snapshot(), nil
}

func (s *JSONStore) Get(ctx context.Context, id int) (*station.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stations {
		if st.ID == id {
			found := st.Clone()
			return &found, nil
		}
	}
	return nil, station.ErrNotFound
}

func (s *JSONStore) Search(ctx context.Context, filter station.Filter) ([]station.Station, error) {
	return filter.Apply(s.snapshot()), nil
}

func (s *JSONStore) Create(ctx context.Context, in station.NewStation) (*station.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := in.Station(station.NextID(s.stations))
	next := append(cloneAll(s.stations), created)
	if err := s.save(next); err != nil {
		return nil, err
	}
	s.stations = next
	observability.CatalogStations.Set(float64(len(next)))

	out := created.Clone()
	return &out, nil
}

func (s *JSONStore) Update(ctx context.Context, id int, patch station.Patch) (*station.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneAll(s.stations)
	for i := range next {
		if next[i].ID != id {
			continue
		}
		patch.Apply(&next[i])
		if err := s.save(next); err != nil {
			return nil, err
		}
		s.stations = next
		out := next[i].Clone()
		return &out, nil
	}
	return nil, station.ErrNotFound
}

func (s *JSONStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]station.Station, 0, len(s.stations))
	for _, st := range s.stations {
		if st.ID != id {
			next = append(next, st.Clone())
		}
	}
	if len(next) == len(s.stations) {
		return station.ErrNotFound
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.stations = next
	observability.CatalogStations.Set(float64(len(next)))
	return nil
}

func (s *JSONStore) Genres(ctx context.Context) ([]string, error) {
	return station.Distinct(s.snapshot(), station.GenreOf), nil
}

func (s *JSONStore) Countries(ctx context.Context) ([]string, error) {
	return station.Distinct(s.snapshot(), station.CountryOf), nil
}

func (s *JSONStore) Languages(ctx context.Context) ([]string, error) {
	return station.Distinct(s.snapshot(), station.LanguageOf), nil
}

// Close stops the watcher, if any.
func (s *JSONStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	s.watcher = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}
