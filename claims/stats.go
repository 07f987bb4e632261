package claims

import (
	"context"
	"fmt"

	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/models"
)

// Stats reads the invite table and combines it with the quota and whitelist
// into the status report shown to administrators
func Stats(ctx context.Context, invites databases.InviteCodeDatabase, quota databases.QuotaDatabase, eligibility databases.EligibilityDatabase) (models.ClaimStats, error) {
	rows, err := invites.LoadAll(ctx)
	if err != nil {
		return models.ClaimStats{}, fmt.Errorf("loading invite table: %w", err)
	}

	state := quota.State()
	total := len(rows)
	claimed := models.CountAssigned(rows)
	return models.ClaimStats{
		Total:               total,
		Claimed:             claimed,
		Limit:               state.Limit,
		Available:           state.AvailableCount(total, claimed),
		LastUpdatedAt:       state.LastUpdatedAt,
		LastUpdatedBy:       state.LastUpdatedBy,
		StoreLastModifiedAt: state.StoreLastModifiedAt,
		WhitelistedRoles:    eligibility.Roles(),
	}, nil
}
