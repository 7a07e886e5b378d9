package models

import (
	"time"
)

const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

type JobApplication struct {
	ID         int       `json:"id" db:"id"`
	StudentID  int       `json:"student_id" db:"student_id"`
	EmployerID int       `json:"employer_id" db:"employer_id"`
	JobTitle   string    `json:"job_title" db:"job_title"`
	Status     string    `json:"status" db:"status"`
	AppliedAt  time.Time `json:"applied_at" db:"applied_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
