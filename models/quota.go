package models

import "time"

// QuotaState is the persisted claim quota and its bookkeeping
type QuotaState struct {
	Limit               int       `json:"claimLimit"`
	LastUpdatedAt       time.Time `json:"lastUpdated"`
	LastUpdatedBy       string    `json:"updatedBy"`
	StoreLastModifiedAt time.Time `json:"csvLastModified"`
}

// CanClaimMore reports whether another user may be assigned a code. A zero
// limit means claiming is disabled.
func (q QuotaState) CanClaimMore(total, claimed int) bool {
	return !q.LimitReached(claimed) && claimed < total
}

// LimitReached reports whether the quota alone forbids another claim,
// regardless of how many rows the table still has.
func (q QuotaState) LimitReached(claimed int) bool {
	return q.Limit == 0 || claimed >= q.Limit
}

// AvailableCount returns how many more codes may be handed out given the
// table size and the quota.
func (q QuotaState) AvailableCount(total, claimed int) int {
	if q.Limit == 0 {
		return 0
	}
	remainingInStore := max(0, total-claimed)
	remainingInLimit := max(0, q.Limit-claimed)
	return min(remainingInStore, remainingInLimit)
}
