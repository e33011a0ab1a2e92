package model

import "time"

// Attachment describes a time-limited file attached to a pad. The binary
// payload lives in object storage under ObjectKey; metadata row and object
// are always created and destroyed together.
type Attachment struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	PadID       string    `json:"pad_id" gorm:"size:64;not null;index"`
	Filename    string    `json:"filename" gorm:"size:255;not null"`
	Size        int64     `json:"size" gorm:"not null"`
	ContentType string    `json:"content_type" gorm:"size:100;not null"`
	ObjectKey   string    `json:"-" gorm:"size:128;not null"`
	UploadedAt  time.Time `json:"uploaded_at" gorm:"not null"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"not null;index"`
}

// Expired reports whether the attachment's expiry timestamp has passed.
func (a *Attachment) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
