package model

import "time"

// Pad describes a password-protected note stored in Postgres. The identifier
// is user-chosen and immutable; SecretDigest holds the encoded argon2id
// digest of the access secret and is set once at creation.
type Pad struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	Content      string    `json:"content" gorm:"type:text;not null;default:''"`
	SecretDigest string    `json:"-" gorm:"size:128;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Attachments []Attachment `json:"attachments,omitempty" gorm:"foreignKey:PadID;constraint:OnDelete:CASCADE"`
}
