package domain

import "time"

const (
	SyncTierNone    = "none"
	SyncTierPremium = "premium"
)

type User struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Email     string     `json:"email" gorm:"not null;index"`
	Name      string     `json:"name"`
	Provider  string     `json:"provider"` // always "google"
	StartDate *time.Time `json:"start_date"`
	// IsNewUser flags that the next fetch should scan from StartDate
	// instead of running incrementally.
	IsNewUser            bool       `json:"is_new_user"`
	SyncTier             string     `json:"sync_tier" gorm:"default:none"`
	LastBackgroundSyncAt *time.Time `json:"last_background_sync_at"`
	IsActive             bool       `json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
