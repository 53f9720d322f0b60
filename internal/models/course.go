package models

import "time"

// Course is a degree programme in the public catalog.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Branch      string    `db:"branch" json:"branch"`
	Description string    `db:"description" json:"description"`
	Duration    int       `db:"duration" json:"duration"`
	Semesters   int       `db:"semesters" json:"semesters"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// CourseFilter narrows the catalog listing.
type CourseFilter struct {
	Query  string
	Branch string
}

// CreateCourseRequest is the payload accepted by POST /courses.
type CreateCourseRequest struct {
	Code        string `json:"code" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=200"`
	Branch      string `json:"branch" validate:"required,max=64"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Duration    int    `json:"duration" validate:"omitempty,min=1,max=8"`
	Semesters   int    `json:"semesters" validate:"omitempty,min=1,max=8"`
}
