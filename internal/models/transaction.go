package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionRecord is the durable reconciliation row for one document.
// At most one record exists per document number; process state may only
// move among the kind's StatusVocabulary labels.
type TransactionRecord struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	DocumentID   string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"documentId"`
	Kind         string         `gorm:"type:varchar(20);not null;index" json:"kind"`
	NetworkID    string         `gorm:"type:varchar(64);not null;index" json:"networkId"`
	GUID         string         `gorm:"type:varchar(64);not null" json:"guid"`
	RequestState string         `gorm:"type:varchar(64);not null" json:"requestState"`
	ProcessState string         `gorm:"type:varchar(64);not null" json:"processState"`
	LastResponse datatypes.JSON `gorm:"type:jsonb" json:"lastResponse,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// TableName specifies the table name
func (TransactionRecord) TableName() string {
	return "transactions"
}
