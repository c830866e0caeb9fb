// internal/domain/operator/entity.go
package operator

import "time"

// Operator is a back-office user of the order dashboard. There is no
// public signup; operators are provisioned by hand.
type Operator struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Name         string     `json:"name" gorm:"size:100"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the table name for Operator model
func (Operator) TableName() string {
	return "operators"
}
