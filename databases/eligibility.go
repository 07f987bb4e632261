package databases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
)

// EligibilityDatabase contains the methods to use with the role whitelist.
// An empty whitelist denies every non-administrator.
type EligibilityDatabase interface {
	Load(ctx context.Context) error
	AddRole(ctx context.Context, roleID string) (bool, error)
	RemoveRole(ctx context.Context, roleID string) (bool, error)
	HasRole(roleID string) bool
	Roles() []string
	IsEligible(isAdmin bool, roleIDs []string) bool
}

type eligibilityDatabase struct {
	path string

	mu    sync.RWMutex
	roles []string
	index map[string]struct{}
}

// NewEligibilityDatabase initializes the whitelist file at path
func NewEligibilityDatabase(path string) EligibilityDatabase {
	return &eligibilityDatabase{path: path, index: map[string]struct{}{}}
}

func (e *eligibilityDatabase) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		e.set(nil)
		if err := e.save(); err != nil {
			return err
		}
		zap.S().Infow("whitelist file not found, created empty whitelist", "path", e.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading whitelist %s: %w", e.path, err)
	}

	var roles []string
	if err := json.Unmarshal(data, &roles); err != nil {
		zap.S().Warnw("invalid whitelist format, resetting to empty", "path", e.path, "error", err)
		e.set(nil)
		return e.save()
	}

	e.set(roles)
	zap.S().Infow("whitelist loaded", "roles", len(e.roles))
	return nil
}

// set must be called with mu held
func (e *eligibilityDatabase) set(roles []string) {
	e.roles = e.roles[:0]
	e.index = make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if _, ok := e.index[r]; ok || r == "" {
			continue
		}
		e.index[r] = struct{}{}
		e.roles = append(e.roles, r)
	}
}

func (e *eligibilityDatabase) AddRole(ctx context.Context, roleID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.index[roleID]; ok {
		return false, nil
	}

	e.index[roleID] = struct{}{}
	e.roles = append(e.roles, roleID)
	if err := e.save(); err != nil {
		delete(e.index, roleID)
		e.roles = e.roles[:len(e.roles)-1]
		return false, err
	}
	return true, nil
}

func (e *eligibilityDatabase) RemoveRole(ctx context.Context, roleID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.index[roleID]; !ok {
		return false, nil
	}

	previous := append([]string(nil), e.roles...)
	remaining := make([]string, 0, len(e.roles))
	for _, r := range e.roles {
		if r != roleID {
			remaining = append(remaining, r)
		}
	}
	e.roles = remaining
	delete(e.index, roleID)
	if err := e.save(); err != nil {
		e.roles = previous
		e.index[roleID] = struct{}{}
		return false, err
	}
	return true, nil
}

func (e *eligibilityDatabase) HasRole(roleID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.index[roleID]
	return ok
}

func (e *eligibilityDatabase) Roles() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.roles...)
}

func (e *eligibilityDatabase) IsEligible(isAdmin bool, roleIDs []string) bool {
	if isAdmin {
		return true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.index) == 0 {
		return false
	}
	for _, id := range roleIDs {
		if _, ok := e.index[id]; ok {
			return true
		}
	}
	return false
}

// save must be called with mu held
func (e *eligibilityDatabase) save() error {
	roles := e.roles
	if roles == nil {
		roles = []string{}
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encoding whitelist: %w", err)
	}
	if err := writeFileAtomic(e.path, data); err != nil {
		return fmt.Errorf("saving whitelist: %w", err)
	}
	zap.S().Debugw("whitelist saved", "roles", len(e.roles))
	return nil
}
