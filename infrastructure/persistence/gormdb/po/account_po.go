package po

import (
	"time"

	"orderflow/domain/account"
)

// RolePO role dictionary
type RolePO struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:100;uniqueIndex;not null"`
}

// TableName Specify table name
func (RolePO) TableName() string {
	return "roles"
}

// AccountPO account persistence object
// The order core only reads accounts; registration lives elsewhere
type AccountPO struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	Login             string    `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash      string    `gorm:"size:255;not null"`
	RoleID            int64     `gorm:"not null;index"`
	Email             string    `gorm:"size:255"`
	IsEmailConfirmed  bool      `gorm:"not null;default:false"`
	RegisteredAt      time.Time `gorm:"not null;index"`
	IsOrderManagement bool      `gorm:"not null;default:false"`
	IsMessageCenter   bool      `gorm:"not null;default:false"`
	IsTerminated      bool      `gorm:"not null;default:false"`
}

// TableName Specify table name
func (AccountPO) TableName() string {
	return "accounts"
}

// AccountRow account joined with its role name
type AccountRow struct {
	AccountPO `gorm:"embedded"`
	RoleName  string
}

func (r *AccountRow) ToDomain() *account.Account {
	return account.RebuildFromDTO(account.ReconstructionDTO{
		ID:             r.ID,
		Login:          r.Login,
		PasswordHash:   r.PasswordHash,
		Role:           r.RoleName,
		Email:          r.Email,
		EmailConfirmed: r.IsEmailConfirmed,
		RegisteredAt:   r.RegisteredAt,
		Capabilities: account.Capabilities{
			OrderManagement: r.IsOrderManagement,
			MessageCenter:   r.IsMessageCenter,
			Terminated:      r.IsTerminated,
		},
	})
}
