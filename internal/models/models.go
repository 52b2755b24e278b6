package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserType string

const (
	UserApplicant UserType = "applicant"
	UserRecruiter UserType = "recruiter"
	UserAdmin     UserType = "admin"
)

type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Type         UserType `gorm:"size:16;not null" json:"type"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Recruiter is the profile owned by a recruiter user.
type Recruiter struct {
	ID        string    `gorm:"primaryKey;size:36" json:"_id"`
	CreatedAt time.Time `json:"created_at"`

	UserID        string `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Name          string `gorm:"not null" json:"name"`
	ContactNumber string `json:"contactNumber"`
	Bio           string `gorm:"type:text" json:"bio"`
	Profile       string `json:"profile"`
}

func (r *Recruiter) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type Education struct {
	InstitutionName string `json:"institutionName"`
	StartYear       int    `json:"startYear"`
	EndYear         int    `json:"endYear,omitempty"`
}

// Applicant is the profile owned by an applicant user.
type Applicant struct {
	ID        string    `gorm:"primaryKey;size:36" json:"_id"`
	CreatedAt time.Time `json:"created_at"`

	UserID    string      `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Name      string      `gorm:"not null" json:"name"`
	Education []Education `gorm:"type:text;serializer:json" json:"education"`
	Skills    []string    `gorm:"type:text;serializer:json" json:"skills"`
	Rating    float64     `json:"rating"`
	Resume    string      `json:"resume"`
	Profile   string      `json:"profile"`
}

func (a *Applicant) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Job struct {
	ID        string    `gorm:"primaryKey;size:36" json:"_id"`
	UpdatedAt time.Time `json:"updated_at"`

	// Owner; immutable after creation.
	UserID string `gorm:"size:36;index;not null;<-:create" json:"userId"`

	Title         string    `gorm:"not null" json:"title"`
	MaxApplicants int       `gorm:"not null" json:"maxApplicants"`
	MaxPositions  int       `gorm:"not null" json:"maxPositions"`
	DateOfPosting time.Time `gorm:"not null;<-:create" json:"dateOfPosting"`
	Deadline      time.Time `gorm:"not null" json:"deadline"`
	Skillsets     []string  `gorm:"type:text;serializer:json" json:"skillsets"`
	JobType       string    `gorm:"size:32;index" json:"jobType"`
	Duration      int       `json:"duration"`
	Salary        int       `gorm:"index" json:"salary"`
	Rating        float64   `json:"rating"`
	Description   string    `gorm:"type:text" json:"description"`
	Location      string    `json:"location"`

	// Filled by the listing query only.
	Recruiter *Recruiter `gorm:"foreignKey:UserID;references:UserID" json:"recruiter,omitempty"`
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

type Application struct {
	ID        string    `gorm:"primaryKey;size:36" json:"_id"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      string            `gorm:"size:36;index;not null;<-:create" json:"userId"`
	RecruiterID string            `gorm:"size:36;index;not null;<-:create" json:"recruiterId"`
	JobID       string            `gorm:"size:36;index;not null;<-:create" json:"jobId"`
	Status      ApplicationStatus `gorm:"size:16;index;not null" json:"status"`
	SOP         string            `gorm:"type:text" json:"sop"`

	DateOfApplication time.Time  `gorm:"not null;<-:create" json:"dateOfApplication"`
	DateOfJoining     *time.Time `json:"dateOfJoining,omitempty"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
