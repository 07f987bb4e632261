package models

import "time"

// ClaimStats summarises the invite table against the quota
type ClaimStats struct {
	Total               int       `json:"total"`
	Claimed             int       `json:"claimed"`
	Limit               int       `json:"limit"`
	Available           int       `json:"available"`
	LastUpdatedAt       time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy       string    `json:"lastUpdatedBy"`
	StoreLastModifiedAt time.Time `json:"storeLastModifiedAt"`
	WhitelistedRoles    []string  `json:"whitelistedRoles"`
}
