package databases

// go generate: mockery --name InviteCodeDatabase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/linesmerrill/invite-bot/models"
)

const (
	codeColumn       = "code"
	legacyCodeColumn = "invite"
	userColumn       = "userid"
)

// ErrEmptyTable is returned when an export is requested but the invite table
// holds no rows
var ErrEmptyTable = errors.New("invite table is empty")

// InviteCodeDatabase contains the methods to use with the invite table. The
// whole table is the unit of durability: callers load every row, mutate the
// snapshot and write it back.
type InviteCodeDatabase interface {
	LoadAll(ctx context.Context) ([]*models.InviteCode, error)
	SaveAll(ctx context.Context, rows []*models.InviteCode) error
	Export(ctx context.Context) ([]byte, int, error)
}

// defaultColumns is the header used when no table has been read yet. Extra
// columns from the first row follow in name order.
func defaultColumns(rows []*models.InviteCode) []string {
	columns := []string{codeColumn, userColumn}
	if len(rows) == 0 {
		return columns
	}
	var extra []string
	for k := range rows[0].Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

// encodeInviteCSV renders rows under header. Fields holding a comma, quote or
// newline are quoted with inner quotes doubled.
func encodeInviteCSV(header []string, rows []*models.InviteCode) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, column := range header {
			record[i] = columnValue(row, column)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding invite table: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeInviteCSV parses an invite table. Short rows are padded with empty
// strings and every value is trimmed.
func decodeInviteCSV(data []byte) ([]string, []*models.InviteCode, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing invite table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	codeIdx := columnIndex(header, codeColumn, legacyCodeColumn)
	if codeIdx < 0 {
		codeIdx = 0
	}
	userIdx := columnIndex(header, userColumn)
	if userIdx < 0 {
		header = append(header, userColumn)
		userIdx = len(header) - 1
	}

	rows := make([]*models.InviteCode, 0, len(records)-1)
	for n, record := range records[1:] {
		row := &models.InviteCode{Position: n}
		for i, column := range header {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			switch i {
			case codeIdx:
				row.Code = value
			case userIdx:
				row.AssignedUser = value
			default:
				if row.Extra == nil {
					row.Extra = make(map[string]string)
				}
				row.Extra[column] = value
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func columnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}

func columnValue(row *models.InviteCode, column string) string {
	switch {
	case strings.EqualFold(column, codeColumn), strings.EqualFold(column, legacyCodeColumn):
		return row.Code
	case strings.EqualFold(column, userColumn):
		return row.AssignedUser
	default:
		return row.Extra[column]
	}
}
