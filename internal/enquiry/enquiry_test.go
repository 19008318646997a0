package enquiry

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realestate/server/internal/apperr"
	"realestate/server/internal/database"
	"realestate/server/internal/database/databasetest"
	mailer "realestate/server/internal/mail"
	"realestate/server/internal/models"
	"realestate/server/internal/queue"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Push(e *models.Enquiry) error {
	return m.Called(e).Error(0)
}

func setup(t *testing.T) (*database.Database, *logrus.Logger) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	db := databasetest.Open(t, logger)
	return db, logger
}

func countEnquiries(t *testing.T, db *database.Database) int64 {
	var n int64
	require.NoError(t, db.GetDB().Model(&models.Enquiry{}).Count(&n).Error)
	return n
}

var validRequest = Request{
	Name:        "Ann Buyer",
	PhoneNumber: "+237670000000",
	Email:       "ann@example.com",
	Subject:     "Viewing",
	Message:     "Is the flat still available?",
}

func TestSubmit_MailsStaff(t *testing.T) {
	db, logger := setup(t)
	ctx := context.Background()

	m := new(MockMailer)
	m.On("Send", ctx, mailer.Message{
		Subject: "Viewing",
		Body:    "Is the flat still available?",
		From:    "ann@example.com",
		To:      []string{"info@real-estate.com"},
	}).Return(nil)
	pub := new(MockPublisher)
	pub.On("Push", mock.AnythingOfType("*models.Enquiry")).Return(nil)

	svc := NewService(db, m, pub, "info@real-estate.com", logger)
	e, err := svc.Submit(ctx, validRequest)
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, int64(1), countEnquiries(t, db))

	m.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSubmit_MailFailureKeepsEnquiry(t *testing.T) {
	db, logger := setup(t)
	ctx := context.Background()

	m := new(MockMailer)
	m.On("Send", ctx, mock.Anything).Return(errors.New("smtp: connection refused"))

	svc := NewService(db, m, nil, "info@real-estate.com", logger)
	e, err := svc.Submit(ctx, validRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMailDispatch)
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
	require.NotNil(t, e)
	assert.NotZero(t, e.ID)
	assert.Equal(t, int64(1), countEnquiries(t, db))
}

func TestSubmit_QueueFullIsIgnored(t *testing.T) {
	db, logger := setup(t)
	ctx := context.Background()

	m := new(MockMailer)
	m.On("Send", ctx, mock.Anything).Return(nil)
	pub := new(MockPublisher)
	pub.On("Push", mock.Anything).Return(queue.ErrQueueFull)

	svc := NewService(db, m, pub, "info@real-estate.com", logger)
	_, err := svc.Submit(ctx, validRequest)
	assert.NoError(t, err)
}

func TestSubmit_Validation(t *testing.T) {
	db, logger := setup(t)
	m := new(MockMailer)
	svc := NewService(db, m, nil, "info@real-estate.com", logger)

	tests := []struct {
		name   string
		mutate func(*Request)
		want   string
	}{
		{"missing name", func(r *Request) { r.Name = " " }, "name is required"},
		{"missing email", func(r *Request) { r.Email = "" }, "email is required"},
		{"bad email", func(r *Request) { r.Email = "Ann <ann@example.com>" }, "email is not a valid address"},
		{"missing subject", func(r *Request) { r.Subject = "" }, "subject is required"},
		{"missing message", func(r *Request) { r.Message = "" }, "message is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest
			tt.mutate(&req)
			_, err := svc.Submit(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Zero(t, countEnquiries(t, db))
	m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
