package databases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/models"
)

// SystemActor is recorded as the updater when the bot itself changes state
const SystemActor = "system"

// ErrInvalidAmount is returned when a quota increase is not a positive number
var ErrInvalidAmount = errors.New("amount must be a positive integer")

// MaxClaimLimit is the largest claim limit that survives a round trip through
// the JSON state file unchanged.
const MaxClaimLimit = 1 << 53

// ErrLimitTooLarge is returned when an increase would push the claim limit
// past MaxClaimLimit
var ErrLimitTooLarge = fmt.Errorf("claim limit cannot exceed %d", MaxClaimLimit)

const legacyTimestampLayout = "2006-01-02 15:04:05"

// QuotaDatabase contains the methods to use with the persisted claim quota.
// Every mutation is written through immediately.
type QuotaDatabase interface {
	Load(ctx context.Context) error
	State() models.QuotaState
	IncreaseBy(ctx context.Context, amount int, by string) error
	TouchStore(ctx context.Context, by string) error
}

type quotaDatabase struct {
	path string
	now  func() time.Time

	mu    sync.RWMutex
	state models.QuotaState
}

// NewQuotaDatabase initializes the quota state file at path. The state starts
// with a zero limit, meaning nothing is claimable.
func NewQuotaDatabase(path string) QuotaDatabase {
	q := &quotaDatabase{path: path, now: func() time.Time { return time.Now().UTC() }}
	q.state = q.defaults()
	return q
}

func (q *quotaDatabase) defaults() models.QuotaState {
	now := q.now()
	return models.QuotaState{
		Limit:               0,
		LastUpdatedAt:       now,
		LastUpdatedBy:       SystemActor,
		StoreLastModifiedAt: now,
	}
}

// persistedQuota mirrors the file so missing or mistyped fields can be told
// apart from zero values.
type persistedQuota struct {
	ClaimLimit      *float64 `json:"claimLimit"`
	LastUpdated     *string  `json:"lastUpdated"`
	UpdatedBy       *string  `json:"updatedBy"`
	CSVLastModified *string  `json:"csvLastModified"`
}

func (q *quotaDatabase) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) {
		q.state = q.defaults()
		if err := q.save(); err != nil {
			return err
		}
		zap.S().Infow("bot state file not found, created default state", "path", q.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading bot state %s: %w", q.path, err)
	}

	state, ok := q.decode(data)
	q.state = state
	if !ok {
		zap.S().Warnw("invalid bot state, falling back to defaults", "path", q.path)
		if err := q.save(); err != nil {
			return err
		}
	}

	zap.S().Infow("bot state loaded", "claimLimit", q.state.Limit, "updatedBy", q.state.LastUpdatedBy)
	return nil
}

// decode returns the state held in data. ok is false when any field had to
// fall back to its default.
func (q *quotaDatabase) decode(data []byte) (models.QuotaState, bool) {
	state := q.defaults()

	var p persistedQuota
	if err := json.Unmarshal(data, &p); err != nil {
		return state, false
	}

	ok := true
	if p.ClaimLimit != nil && *p.ClaimLimit >= 0 && *p.ClaimLimit <= MaxClaimLimit && *p.ClaimLimit == float64(int(*p.ClaimLimit)) {
		state.Limit = int(*p.ClaimLimit)
	} else {
		ok = false
	}
	if t, valid := parseTimestamp(p.LastUpdated); valid {
		state.LastUpdatedAt = t
	} else {
		ok = false
	}
	if p.UpdatedBy != nil && *p.UpdatedBy != "" {
		state.LastUpdatedBy = *p.UpdatedBy
	} else {
		ok = false
	}
	if t, valid := parseTimestamp(p.CSVLastModified); valid {
		state.StoreLastModifiedAt = t
	} else {
		ok = false
	}
	return state, ok
}

func parseTimestamp(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, *s); err == nil {
		return t, true
	}
	if t, err := time.Parse(legacyTimestampLayout, *s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (q *quotaDatabase) State() models.QuotaState {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

func (q *quotaDatabase) IncreaseBy(ctx context.Context, amount int, by string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if amount > MaxClaimLimit-q.state.Limit {
		return ErrLimitTooLarge
	}

	previous := q.state
	q.state.Limit += amount
	q.state.LastUpdatedAt = q.now()
	q.state.LastUpdatedBy = by
	if err := q.save(); err != nil {
		q.state = previous
		return err
	}

	zap.S().Infow("claim limit increased", "amount", amount, "claimLimit", q.state.Limit, "by", by)
	return nil
}

func (q *quotaDatabase) TouchStore(ctx context.Context, by string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	previous := q.state
	now := q.now()
	q.state.StoreLastModifiedAt = now
	q.state.LastUpdatedAt = now
	q.state.LastUpdatedBy = by
	if err := q.save(); err != nil {
		q.state = previous
		return err
	}
	return nil
}

// save must be called with mu held
func (q *quotaDatabase) save() error {
	data, err := json.MarshalIndent(q.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bot state: %w", err)
	}
	if err := writeFileAtomic(q.path, data); err != nil {
		return fmt.Errorf("saving bot state: %w", err)
	}
	return nil
}
