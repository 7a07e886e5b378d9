package services

import (
	"context"
	"log"
	"strings"
	"time"

	"WorkBridge/server/internal/models"
	"WorkBridge/server/internal/store"
)

type JobService interface {
	Apply(ctx context.Context, studentID, employerID int, jobTitle string) (*models.JobApplication, error)
	ListForUser(ctx context.Context, userID int, userType string) ([]models.JobApplication, error)
	Accept(ctx context.Context, employerID, applicationID int) (*models.JobApplication, *models.ConversationSummary, error)
	Reject(ctx context.Context, employerID, applicationID int) (*models.JobApplication, error)
}

type jobService struct {
	store     store.Store
	messaging MessagingService
	now       func() time.Time
}

func NewJobService(st store.Store, messaging MessagingService) *jobService {
	return &jobService{
		store:     st,
		messaging: messaging,
		now:       time.Now,
	}
}

func (js *jobService) Apply(ctx context.Context, studentID, employerID int, jobTitle string) (*models.JobApplication, error) {
	jobTitle = strings.TrimSpace(jobTitle)
	if jobTitle == "" {
		return nil, models.ErrInvalidRequest
	}

	employer, err := js.store.UserByID(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if employer.UserType != models.UserTypeEmployer {
		return nil, models.ErrUserNotFound
	}

	now := js.now().UTC()
	application := &models.JobApplication{
		StudentID:  studentID,
		EmployerID: employerID,
		JobTitle:   jobTitle,
		Status:     models.ApplicationStatusPending,
		AppliedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := js.store.CreateApplication(ctx, application); err != nil {
		return nil, err
	}

	log.Printf("Application %d submitted by student %d to employer %d", application.ID, studentID, employerID)
	return application, nil
}

func (js *jobService) ListForUser(ctx context.Context, userID int, userType string) ([]models.JobApplication, error) {
	if userType == models.UserTypeStudent {
		return js.store.ApplicationsByStudent(ctx, userID)
	}
	return js.store.ApplicationsByEmployer(ctx, userID)
}

// Accept flips the application to accepted and injects the congratulatory
// system message in the same transaction: either both land or neither does.
func (js *jobService) Accept(ctx context.Context, employerID, applicationID int) (*models.JobApplication, *models.ConversationSummary, error) {
	var (
		application  *models.JobApplication
		conversation *models.Conversation
	)

	err := js.store.InTx(ctx, func(tx store.Store) error {
		app, err := js.decide(ctx, tx, employerID, applicationID, models.ApplicationStatusAccepted)
		if err != nil {
			return err
		}

		employer, err := tx.UserByID(ctx, app.EmployerID)
		if err != nil {
			return err
		}
		student, err := tx.UserByID(ctx, app.StudentID)
		if err != nil {
			return err
		}

		conv, err := js.messaging.PostAcceptanceMessage(ctx, tx, employer, student, app.JobTitle)
		if err != nil {
			return err
		}

		application, conversation = app, conv
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Application %d accepted by employer %d, conversation %d", applicationID, employerID, conversation.ID)

	summary, err := js.messaging.ConversationForUser(ctx, conversation.ID, employerID)
	if err != nil {
		return nil, nil, err
	}
	return application, summary, nil
}

func (js *jobService) Reject(ctx context.Context, employerID, applicationID int) (*models.JobApplication, error) {
	var application *models.JobApplication
	err := js.store.InTx(ctx, func(tx store.Store) error {
		app, err := js.decide(ctx, tx, employerID, applicationID, models.ApplicationStatusRejected)
		if err != nil {
			return err
		}
		application = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Application %d rejected by employer %d", applicationID, employerID)
	return application, nil
}

func (js *jobService) decide(ctx context.Context, tx store.Store, employerID, applicationID int, status string) (*models.JobApplication, error) {
	app, err := tx.ApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.EmployerID != employerID {
		return nil, models.ErrNotApplicationOwner
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, models.ErrApplicationDecided
	}

	now := js.now().UTC()
	if err := tx.SetApplicationStatus(ctx, app.ID, status, now); err != nil {
		return nil, err
	}
	app.Status = status
	app.UpdatedAt = now
	return app, nil
}
