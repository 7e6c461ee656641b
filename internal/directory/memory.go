package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// InMemoryDirectory keeps profiles in a map. Used for development and tests.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryDirectory creates an empty directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		profiles: make(map[string]*Profile),
	}
}

// Put stores or replaces a profile.
func (d *InMemoryDirectory) Put(ctx context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return errors.New("directory: profile id required")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("directory: invalid role %q", p.Role)
	}
	cp := *p
	d.mu.Lock()
	d.profiles[p.ID] = &cp
	d.mu.Unlock()
	return nil
}

// GetProfile returns a copy of the stored profile.
func (d *InMemoryDirectory) GetProfile(ctx context.Context, id string) (*Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

// ListDoctors returns all doctor profiles ordered by name.
func (d *InMemoryDirectory) ListDoctors(ctx context.Context) ([]*Profile, error) {
	d.mu.RLock()
	out := make([]*Profile, 0, len(d.profiles))
	for _, p := range d.profiles {
		if p.IsDoctor() {
			cp := *p
			out = append(out, &cp)
		}
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].ID < out[j].ID
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

// LoadSeed reads a JSON array of profiles and stores each one.
func (d *InMemoryDirectory) LoadSeed(ctx context.Context, r io.Reader) (int, error) {
	return Seed(ctx, d, r)
}

// Putter is a directory that accepts profile writes.
type Putter interface {
	Put(ctx context.Context, p *Profile) error
}

// Seed decodes a JSON array of profiles from r and writes each to dst.
func Seed(ctx context.Context, dst Putter, r io.Reader) (int, error) {
	var profiles []*Profile
	if err := json.NewDecoder(r).Decode(&profiles); err != nil {
		return 0, fmt.Errorf("directory: decode seed: %w", err)
	}
	for i, p := range profiles {
		if err := dst.Put(ctx, p); err != nil {
			return i, fmt.Errorf("directory: seed entry %d: %w", i, err)
		}
	}
	return len(profiles), nil
}
