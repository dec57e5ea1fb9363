package airplay

import (
	"sort"
	"strings"
	"sync"

	"go2tv.app/mcp-airplay/internal/domain"
)

// Registry holds the receivers discovery currently knows about.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]domain.Device
}

func NewRegistry() *Registry {
	return &Registry{devices: map[string]domain.Device{}}
}

func (r *Registry) Upsert(device domain.Device) {
	if strings.TrimSpace(device.ID) == "" {
		return
	}
	r.mu.Lock()
	r.devices[device.ID] = device
	r.mu.Unlock()
}

func (r *Registry) Remove(id string) (domain.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if ok {
		delete(r.devices, id)
	}
	return device, ok
}

// List returns a snapshot ordered by name, then ID.
func (r *Registry) List() []domain.Device {
	r.mu.RLock()
	out := make([]domain.Device, 0, len(r.devices))
	for _, device := range r.devices {
		out = append(out, device)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
