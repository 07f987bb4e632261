package models

import "strings"

// InviteCode represents one row of the invite table
type InviteCode struct {
	Code         string `bson:"code" json:"code"`
	AssignedUser string `bson:"userid" json:"userid"`
	// Position keeps file order when rows live in a database.
	Position int `bson:"position" json:"-"`
	// Extra carries columns other than the code and user id, keyed by header.
	Extra map[string]string `bson:"extra,omitempty" json:"extra,omitempty"`
}

// IsAssigned reports whether the row has been handed out to a user
func (i InviteCode) IsAssigned() bool {
	return strings.TrimSpace(i.AssignedUser) != ""
}

// FindByUser returns the first row assigned to userID
func FindByUser(rows []*InviteCode, userID string) *InviteCode {
	for _, row := range rows {
		if row.AssignedUser == userID {
			return row
		}
	}
	return nil
}

// FindFirstUnassigned returns the first free row in table order
func FindFirstUnassigned(rows []*InviteCode) *InviteCode {
	for _, row := range rows {
		if !row.IsAssigned() {
			return row
		}
	}
	return nil
}

// CountAssigned returns how many rows are already handed out
func CountAssigned(rows []*InviteCode) int {
	n := 0
	for _, row := range rows {
		if row.IsAssigned() {
			n++
		}
	}
	return n
}
