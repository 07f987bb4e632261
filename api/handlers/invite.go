package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/api"
	"github.com/linesmerrill/invite-bot/claims"
	"github.com/linesmerrill/invite-bot/config"
	"github.com/linesmerrill/invite-bot/databases"
)

// ExportTimeLayout is used in export file names
const ExportTimeLayout = "2006-01-02-15-04-05"

// Invite exposes the invite table to operators
type Invite struct {
	Invites     databases.InviteCodeDatabase
	Quota       databases.QuotaDatabase
	Eligibility databases.EligibilityDatabase
}

// StatsHandler returns the claim counters, quota and whitelist
func (i Invite) StatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithStoreTimeout(r.Context())
	defer cancel()

	stats, err := claims.Stats(ctx, i.Invites, i.Quota, i.Eligibility)
	if err != nil {
		config.ErrorStatus("failed to read invite stats", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(stats)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ExportHandler streams the invite table as a csv attachment
func (i Invite) ExportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithStoreTimeout(r.Context())
	defer cancel()

	data, rows, err := i.Invites.Export(ctx)
	if errors.Is(err, databases.ErrEmptyTable) {
		config.ErrorStatus("no data to export", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to export invite table", http.StatusInternalServerError, w, err)
		return
	}

	filename := fmt.Sprintf("invites_export_%s.csv", time.Now().UTC().Format(ExportTimeLayout))
	zap.S().Infow("invite table exported over http", "filename", filename, "rows", rows)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
