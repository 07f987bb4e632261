package databases

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/models"
)

type inviteCSVDatabase struct {
	path string

	mu      sync.Mutex
	columns []string
}

// NewInviteCSVDatabase initializes an invite table stored as a comma separated
// file with a header row
func NewInviteCSVDatabase(path string) InviteCodeDatabase {
	return &inviteCSVDatabase{path: path}
}

func (d *inviteCSVDatabase) LoadAll(ctx context.Context) ([]*models.InviteCode, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.S().Warnw("invite table not found, treating as empty", "path", d.path)
		return []*models.InviteCode{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading invite table %s: %w", d.path, err)
	}

	header, rows, err := decodeInviteCSV(data)
	if err != nil {
		return nil, err
	}
	if header != nil {
		d.mu.Lock()
		d.columns = header
		d.mu.Unlock()
	}
	if rows == nil {
		rows = []*models.InviteCode{}
	}

	claimed := models.CountAssigned(rows)
	zap.S().Debugw("invite table loaded",
		"path", d.path,
		"total", len(rows),
		"assigned", claimed,
		"available", len(rows)-claimed,
	)
	return rows, nil
}

func (d *inviteCSVDatabase) SaveAll(ctx context.Context, rows []*models.InviteCode) error {
	if len(rows) == 0 {
		zap.S().Warnw("refusing to write an empty invite table", "path", d.path)
		return nil
	}

	d.mu.Lock()
	columns := d.columns
	d.mu.Unlock()
	if columns == nil {
		columns = defaultColumns(rows)
	}

	data, err := encodeInviteCSV(columns, rows)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(d.path, data); err != nil {
		return err
	}

	zap.S().Debugw("invite table written", "path", d.path, "rows", len(rows))
	return nil
}

func (d *inviteCSVDatabase) Export(ctx context.Context) ([]byte, int, error) {
	rows, err := d.LoadAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, ErrEmptyTable
	}

	d.mu.Lock()
	columns := d.columns
	d.mu.Unlock()
	if columns == nil {
		columns = defaultColumns(rows)
	}

	data, err := encodeInviteCSV(columns, rows)
	if err != nil {
		return nil, 0, err
	}
	return data, len(rows), nil
}
