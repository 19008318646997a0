// Package enquiry stores contact enquiries and forwards them to staff.
package enquiry

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"realestate/server/internal/apperr"
	mailer "realestate/server/internal/mail"
	"realestate/server/internal/metrics"
	"realestate/server/internal/models"
	"realestate/server/internal/queue"
)

// ErrMailDispatch marks an enquiry that was saved but could not be mailed
var ErrMailDispatch = errors.New("failed to send enquiry email")

type Store interface {
	CreateEnquiry(ctx context.Context, e *models.Enquiry) error
}

// Publisher receives saved enquiries for asynchronous staff notification
type Publisher interface {
	Push(e *models.Enquiry) error
}

type Request struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
}

type Service struct {
	store     Store
	mailer    mailer.Mailer
	publisher Publisher
	staffAddr string
	logger    *logrus.Logger
}

// NewService wires the enquiry flow. publisher may be nil.
func NewService(store Store, m mailer.Mailer, publisher Publisher, staffAddr string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Service{store: store, mailer: m, publisher: publisher, staffAddr: staffAddr, logger: logger}
}

func (r Request) validate() (Request, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Email = strings.TrimSpace(r.Email)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)

	var problems []string
	if r.Name == "" {
		problems = append(problems, "name is required")
	}
	if r.Email == "" {
		problems = append(problems, "email is required")
	} else if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		problems = append(problems, "email is not a valid address")
	}
	if r.Subject == "" {
		problems = append(problems, "subject is required")
	}
	if r.Message == "" {
		problems = append(problems, "message is required")
	}
	if len(r.Name) > 100 || len(r.Subject) > 100 || len(r.Email) > 100 || len(r.PhoneNumber) > 100 {
		problems = append(problems, "name, email, phone_number and subject are limited to 100 characters")
	}
	if len(problems) > 0 {
		return r, apperr.Validation(strings.Join(problems, "; "))
	}
	return r, nil
}

// Submit saves the enquiry, mails it to staff and queues a notification.
// A mail failure is reported after the enquiry has been saved; the saved
// enquiry is returned alongside the error.
func (s *Service) Submit(ctx context.Context, req Request) (*models.Enquiry, error) {
	req, err := req.validate()
	if err != nil {
		return nil, err
	}

	e := &models.Enquiry{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Subject:     req.Subject,
		Message:     req.Message,
	}
	if err := s.store.CreateEnquiry(ctx, e); err != nil {
		return nil, apperr.Classify(err, "failed to save enquiry")
	}

	s.notify(e)

	err = s.mailer.Send(ctx, mailer.Message{
		Subject: e.Subject,
		Body:    e.Message,
		From:    e.Email,
		To:      []string{s.staffAddr},
	})
	if err != nil {
		metrics.EnquiriesTotal.WithLabelValues("failed").Inc()
		s.logger.WithError(err).WithField("enquiry_id", e.ID).Error("Failed to send enquiry email")
		return e, apperr.Dependency("enquiry saved but could not be sent", errors.Join(ErrMailDispatch, err))
	}

	metrics.EnquiriesTotal.WithLabelValues("sent").Inc()
	s.logger.WithField("enquiry_id", e.ID).Info("Enquiry received")
	return e, nil
}

func (s *Service) notify(e *models.Enquiry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Push(e); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			s.logger.WithField("enquiry_id", e.ID).Warn("Notification queue full, dropping enquiry notification")
			return
		}
		s.logger.WithError(err).WithField("enquiry_id", e.ID).Warn("Failed to queue enquiry notification")
	}
}
