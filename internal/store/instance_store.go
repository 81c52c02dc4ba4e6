package store

import (
	"path/filepath"
	"sort"
	"sync"

	"thinkgw/internal/domain"
)

const instancesFilename = "instances.json"

type instancesFile struct {
	Active    domain.InstanceID                     `json:"active,omitempty"`
	Instances map[domain.InstanceID]domain.Instance `json:"instances"`
}

// InstanceFileStore persists gateway instance records to disk.
type InstanceFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewInstanceFileStore returns an InstanceFileStore rooted at dir.
func NewInstanceFileStore(dir string) *InstanceFileStore {
	return &InstanceFileStore{dir: dir}
}

func (s *InstanceFileStore) path() string { return filepath.Join(s.dir, instancesFilename) }

func (s *InstanceFileStore) load() (instancesFile, error) {
	f := instancesFile{Instances: map[domain.InstanceID]domain.Instance{}}
	if err := readJSON(s.path(), &f); err != nil {
		return f, storageErr("read instances", err)
	}
	if f.Instances == nil {
		f.Instances = map[domain.InstanceID]domain.Instance{}
	}
	return f, nil
}

func (s *InstanceFileStore) save(f instancesFile) error {
	if err := writeJSON(s.path(), f); err != nil {
		return storageErr("write instances", err)
	}
	return nil
}

// SaveInstance stores or replaces the record with the same id.
func (s *InstanceFileStore) SaveInstance(instance domain.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	f.Instances[instance.ID] = instance
	return s.save(f)
}

// LoadInstances returns all records ordered by name.
func (s *InstanceFileStore) LoadInstances() ([]domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Instance, 0, len(f.Instances))
	for _, inst := range f.Instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteInstance removes a record, clearing the active selection if it
// pointed at it. It reports whether the record existed.
func (s *InstanceFileStore) DeleteInstance(id domain.InstanceID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := f.Instances[id]; !ok {
		return false, nil
	}
	delete(f.Instances, id)
	if f.Active == id {
		f.Active = ""
	}
	return true, s.save(f)
}

// SetActiveInstance selects id; the record must exist.
func (s *InstanceFileStore) SetActiveInstance(id domain.InstanceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Instances[id]; !ok {
		return domain.ErrInstanceNotFound
	}
	f.Active = id
	return s.save(f)
}

// ActiveInstance returns the selected instance id, if any.
func (s *InstanceFileStore) ActiveInstance() (domain.InstanceID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return "", false, err
	}
	return f.Active, f.Active != "", nil
}

// Compile-time assertion that InstanceFileStore implements domain.InstanceStore.
var _ domain.InstanceStore = (*InstanceFileStore)(nil)
