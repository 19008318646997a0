package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"realestate/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// NotificationQueue fans new enquiries out to staff notification handlers
type NotificationQueue struct {
	items    chan *models.Enquiry
	done     chan struct{}
	stopped  chan struct{}
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(*models.Enquiry) error
}

func NewNotificationQueue(bufferSize int, logger *logrus.Logger) *NotificationQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &NotificationQueue{
		items:    make(chan *models.Enquiry, bufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(*models.Enquiry) error, 0),
	}
}

// Push enqueues an enquiry without blocking the caller
func (q *NotificationQueue) Push(e *models.Enquiry) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- e:
		q.logger.WithField("enquiry_id", e.ID).Debug("Pushed enquiry notification to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *NotificationQueue) Subscribe(handler func(*models.Enquiry) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins delivering queued notifications. It is a no-op after the first call.
func (q *NotificationQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.process()
}

func (q *NotificationQueue) process() {
	defer close(q.stopped)
	for {
		select {
		case <-q.done:
			q.drain()
			return
		case e := <-q.items:
			q.dispatch(e)
		}
	}
}

// drain delivers what was accepted before Close
func (q *NotificationQueue) drain() {
	for {
		select {
		case e := <-q.items:
			q.dispatch(e)
		default:
			return
		}
	}
}

func (q *NotificationQueue) dispatch(e *models.Enquiry) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(e); err != nil {
			q.logger.WithError(err).WithField("enquiry_id", e.ID).Error("Handler failed to process enquiry notification")
		}
	}
}

// Close stops accepting pushes and waits for accepted items to be delivered.
// The items channel is left open so a racing Push can never panic.
func (q *NotificationQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	close(q.done)
	q.mu.Unlock()

	if started {
		<-q.stopped
	}
	return nil
}

func (q *NotificationQueue) Len() int {
	return len(q.items)
}

func (q *NotificationQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
