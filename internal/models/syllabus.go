package models

import "time"

// Syllabus is one uploaded syllabus document and its access counters.
type Syllabus struct {
	ID            string    `db:"id" json:"id"`
	CourseCode    string    `db:"course_code" json:"courseCode"`
	Branch        string    `db:"branch" json:"branch"`
	Semester      int       `db:"semester" json:"semester"`
	Subject       string    `db:"subject" json:"subject"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description,omitempty"`
	StorageDriver string    `db:"storage_driver" json:"storageDriver"`
	FileKey       string    `db:"file_key" json:"-"`
	FileURL       string    `db:"file_url" json:"fileUrl,omitempty"`
	FileName      string    `db:"file_name" json:"fileName"`
	MimeType      string    `db:"mime_type" json:"mimeType"`
	FileSize      int64     `db:"file_size" json:"fileSize"`
	UploaderID    string    `db:"uploader_id" json:"uploaderId"`
	Version       int       `db:"version" json:"version"`
	DownloadCount int64     `db:"download_count" json:"downloadCount"`
	ViewCount     int64     `db:"view_count" json:"viewCount"`
	IsActive      bool      `db:"is_active" json:"isActive"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// SyllabusFilter narrows public and admin listings. Zero values mean no constraint.
type SyllabusFilter struct {
	CourseCode string
	Semester   int
	Branch     string
	Search     string
	UploaderID string
	Limit      int
}

// UploadSyllabusRequest carries the form fields of POST /syllabi.
type UploadSyllabusRequest struct {
	CourseCode  string `form:"courseCode" json:"courseCode" validate:"required,max=32"`
	Semester    int    `form:"semester" json:"semester" validate:"required,min=1,max=8"`
	Subject     string `form:"subject" json:"subject" validate:"required,max=200"`
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Description string `form:"description" json:"description" validate:"omitempty,max=2000"`
	Version     int    `form:"version" json:"version" validate:"omitempty,min=1"`
}

// ServeIntent selects which counter a serve increments.
type ServeIntent string

const (
	ServePreview  ServeIntent = "preview"
	ServeDownload ServeIntent = "download"
)

// CounterColumn maps the intent to the counter it increments.
func (i ServeIntent) CounterColumn() string {
	if i == ServeDownload {
		return "download_count"
	}
	return "view_count"
}
