package types

import "time"

// UsageCounters are denormalized counters kept with the user profile.
type UsageCounters struct {
	TotalGamesManaged int `json:"totalGamesManaged"`
	BackupsCreated    int `json:"backupsCreated"`
	ImportsCompleted  int `json:"importsCompleted"`
}

// UserData is the signed-in user's profile. Cleared on sign-out.
type UserData struct {
	UserID          string        `json:"userId,omitempty"`
	Email           string        `json:"email,omitempty"`
	DisplayName     string        `json:"displayName,omitempty"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	SignedInAt      *time.Time    `json:"signedInAt,omitempty"`
	Usage           UsageCounters `json:"usage"`
}

// MigrationRecord notes one applied data repair or migration.
type MigrationRecord struct {
	Name      string    `json:"name"`
	AppliedAt time.Time `json:"appliedAt"`
	Details   string    `json:"details,omitempty"`
}

// DataIntegrity tracks backup and migration bookkeeping.
type DataIntegrity struct {
	LastBackupDate   *time.Time        `json:"lastBackupDate,omitempty"`
	Version          string            `json:"version"`
	MigrationHistory []MigrationRecord `json:"migrationHistory,omitempty"`
}

// Clone returns a deep copy of d.
func (d DataIntegrity) Clone() DataIntegrity {
	if d.LastBackupDate != nil {
		t := *d.LastBackupDate
		d.LastBackupDate = &t
	}
	d.MigrationHistory = cloneSlice(d.MigrationHistory)
	return d
}

// Clone returns a deep copy of u.
func (u UserData) Clone() UserData {
	if u.SignedInAt != nil {
		t := *u.SignedInAt
		u.SignedInAt = &t
	}
	return u
}
