package store

import (
	"context"
	"errors"
	"log"
	"time"

	"WorkBridge/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

var applicationColumns = []string{"id", "student_id", "employer_id", "job_title", "status", "applied_at", "updated_at"}

func (s *Postgres) CreateApplication(ctx context.Context, app *models.JobApplication) (int, error) {
	query := psql.Insert("job_applications").
		Columns("student_id", "employer_id", "job_title", "status", "applied_at", "updated_at").
		Values(app.StudentID, app.EmployerID, app.JobTitle, app.Status, app.AppliedAt, app.UpdatedAt).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	if err := s.q.QueryRow(ctx, sqlStr, args...).Scan(&app.ID); err != nil {
		log.Printf("Error creating application for student %d: %v", app.StudentID, err)
		return 0, err
	}
	return app.ID, nil
}

func (s *Postgres) ApplicationByID(ctx context.Context, id int) (*models.JobApplication, error) {
	query := psql.Select(applicationColumns...).
		From("job_applications").
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var app models.JobApplication
	err = s.q.QueryRow(ctx, sqlStr, args...).Scan(&app.ID, &app.StudentID, &app.EmployerID,
		&app.JobTitle, &app.Status, &app.AppliedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrApplicationNotFound
		}
		log.Printf("Error fetching application %d: %v", id, err)
		return nil, err
	}
	return &app, nil
}

func (s *Postgres) ApplicationsByStudent(ctx context.Context, studentID int) ([]models.JobApplication, error) {
	return s.applicationsBy(ctx, squirrel.Eq{"student_id": studentID})
}

func (s *Postgres) ApplicationsByEmployer(ctx context.Context, employerID int) ([]models.JobApplication, error) {
	return s.applicationsBy(ctx, squirrel.Eq{"employer_id": employerID})
}

func (s *Postgres) applicationsBy(ctx context.Context, where squirrel.Eq) ([]models.JobApplication, error) {
	query := psql.Select(applicationColumns...).
		From("job_applications").
		Where(where).
		OrderBy("applied_at DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching applications: %v", err)
		return nil, err
	}
	defer rows.Close()

	var applications []models.JobApplication
	for rows.Next() {
		var app models.JobApplication
		err := rows.Scan(&app.ID, &app.StudentID, &app.EmployerID,
			&app.JobTitle, &app.Status, &app.AppliedAt, &app.UpdatedAt)
		if err != nil {
			return nil, err
		}
		applications = append(applications, app)
	}
	return applications, rows.Err()
}

func (s *Postgres) SetApplicationStatus(ctx context.Context, id int, status string, at time.Time) error {
	query := psql.Update("job_applications").
		Set("status", status).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := s.q.Exec(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error updating application %d status: %v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrApplicationNotFound
	}
	return nil
}
