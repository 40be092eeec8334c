package models

import "time"

// Account is one tenant: a Magaya network plus its LaFactura credentials.
// The pipeline walks every active account on each scheduled run.
type Account struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"type:varchar(128);not null" json:"name"`
	Active bool   `gorm:"default:true;index" json:"active"`

	MagayaURL  string `gorm:"type:varchar(255);not null" json:"magayaUrl"`
	NetworkID  string `gorm:"type:varchar(64);not null;uniqueIndex" json:"networkId"`
	MagayaUser string `gorm:"type:varchar(128);not null" json:"magayaUser"`
	MagayaPass string `gorm:"type:varchar(128);not null" json:"-"`

	LaFacturaUser string `gorm:"type:varchar(128);not null" json:"laFacturaUser"`
	LaFacturaPass string `gorm:"type:varchar(128);not null" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Account) TableName() string {
	return "accounts"
}
