package session

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/popcoin-idle/popcoin/internal/models"
)

// ProfileCache is a best-effort local copy of the last known user
// profile, used only to short-circuit UI flicker on reload. It is
// never trusted over the backend's status response.
type ProfileCache struct {
	Path string
	mu   sync.Mutex
}

type cachedProfile struct {
	User     *models.User `json:"user"`
	LastSync int64        `json:"last_sync"`
}

// Load returns the cached profile, or (nil, nil) when absent.
func (p *ProfileCache) Load() (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cached cachedProfile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.User, nil
}

// Store writes the profile with the current sync timestamp.
func (p *ProfileCache) Store(user *models.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(cachedProfile{User: user, LastSync: time.Now().Unix()})
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, data, 0o600)
}

// Clear removes the cache file. A missing file is not an error.
func (p *ProfileCache) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
