package databases

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/models"
)

var violationHeader = []string{"userId", "username", "timestamp", "messageContent", "messageDeleted", "notificationSent"}

// ViolationDatabase contains the methods to use with the moderation ledger.
// The ledger file is append only and is the source of truth; per-user counts
// are a cache rebuilt from it by Load.
type ViolationDatabase interface {
	Load(ctx context.Context) error
	Append(ctx context.Context, v models.Violation) (int, error)
	Count(userID string) int
	Users() int
}

type violationDatabase struct {
	path string

	mu     sync.Mutex
	counts map[string]int
}

// NewViolationDatabase initializes the moderation ledger at path
func NewViolationDatabase(path string) ViolationDatabase {
	return &violationDatabase{path: path, counts: map[string]int{}}
}

func (v *violationDatabase) Load(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := os.ReadFile(v.path)
	if errors.Is(err, fs.ErrNotExist) {
		v.counts = map[string]int{}
		if err := v.createWithHeader(); err != nil {
			return err
		}
		zap.S().Infow("created new moderation log", "path", v.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading moderation log %s: %w", v.path, err)
	}

	counts, err := countViolations(data)
	if err != nil {
		return err
	}
	v.counts = counts
	zap.S().Infow("loaded violation data", "users", len(v.counts))
	return nil
}

func countViolations(data []byte) (map[string]int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing moderation log: %w", err)
	}

	counts := make(map[string]int)
	for i, record := range records {
		if i == 0 || len(record) < 2 {
			continue
		}
		userID := strings.TrimSpace(record[0])
		if userID == "" {
			continue
		}
		counts[userID]++
	}
	return counts, nil
}

// createWithHeader must be called with mu held
func (v *violationDatabase) createWithHeader() error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0o755); err != nil {
		return fmt.Errorf("creating moderation log directory: %w", err)
	}
	f, err := os.OpenFile(v.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating moderation log %s: %w", v.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(violationHeader); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing moderation log header: %w", err)
	}
	return f.Close()
}

func (v *violationDatabase) Append(ctx context.Context, violation models.Violation) (int, error) {
	if violation.UserID == "" {
		return 0, errors.New("violation is missing a user id")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := os.Stat(v.path); errors.Is(err, fs.ErrNotExist) {
		if err := v.createWithHeader(); err != nil {
			return 0, err
		}
	}

	f, err := os.OpenFile(v.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening moderation log %s: %w", v.path, err)
	}

	timestamp := violation.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	w := csv.NewWriter(f)
	err = w.Write([]string{
		violation.UserID,
		violation.Username,
		timestamp.UTC().Format(time.RFC3339),
		violation.MessageContent,
		yesNo(violation.MessageDeleted),
		yesNo(violation.NotificationSent),
	})
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("appending to moderation log: %w", err)
	}

	v.counts[violation.UserID]++
	return v.counts[violation.UserID], nil
}

func (v *violationDatabase) Count(userID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counts[userID]
}

func (v *violationDatabase) Users() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.counts)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
