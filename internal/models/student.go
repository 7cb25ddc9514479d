package models

import "time"

// Student represents a registered learner as seen by the registration subsystem.
type Student struct {
	ID          string    `db:"id" json:"id"`
	NIM         string    `db:"nim" json:"nim"`
	FullName    string    `db:"full_name" json:"full_name"`
	ProgramID   string    `db:"program_id" json:"program_id"`
	ProgramName string    `db:"program_name" json:"program_name"`
	Semester    int       `db:"semester" json:"semester"`
	IsMBKM      bool      `db:"is_mbkm" json:"is_mbkm"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ProgramID string
	Semester  int
	IsMBKM    *bool
	Page      int
	PageSize  int
}
