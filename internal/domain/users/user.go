package users

import (
	"time"

	"github.com/google/uuid"
)

// User is read for ownership resolution only. Identity management lives elsewhere.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string     `gorm:"column:email;index" json:"email"`
	CompanyID *uuid.UUID `gorm:"type:uuid;column:company_id;index" json:"company_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (User) TableName() string { return "user" }
