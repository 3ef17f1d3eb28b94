// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role determines what a profile may do with content. Only teachers may
// create, edit, or delete posts; everyone may comment.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// IsTeacher reports whether the role may author posts.
func (r Role) IsTeacher() bool {
	return r == RoleTeacher
}

// Profile represents a registered user of the AstraMentor platform.
type Profile struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"not null" json:"name"`
	Email              string         `gorm:"unique;not null" json:"email"`
	Password           string         `gorm:"not null" json:"-"`
	Role               Role           `gorm:"not null;default:student" json:"role"`
	RegistrationNumber string         `json:"registration_number"`
	Avatar             string         `json:"avatar"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Posts              []Post         `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}

// IsTeacher reports whether the profile may author posts.
func (p *Profile) IsTeacher() bool {
	return p.Role == RoleTeacher
}
