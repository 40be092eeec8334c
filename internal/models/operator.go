package models

import "time"

// Operator is an API user allowed to trigger manual pipeline runs
type Operator struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"`
	Role         string    `gorm:"type:varchar(32);default:'admin'" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Operator) TableName() string {
	return "operators"
}
