package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/config"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/email"
	"github.com/gulfsetup/crm-api/internal/repository"
	"go.uber.org/zap"
)

type notifyTask struct {
	event   domain.NotifyEvent
	leadID  uuid.UUID
	track   domain.Track
	title   string
	message string
}

// Notifier fans milestone events out to operators: a persisted
// notification row plus a best-effort email. Dispatch runs on a single
// worker fed by a bounded queue so a slow SMTP server can never stall a
// state transition; when the queue is full the event is dropped and
// logged.
type Notifier struct {
	notificationRepo *repository.NotificationRepository
	mailer           MailSender
	recipients       []string
	queue            chan notifyTask
	logger           *zap.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier and starts its dispatch worker
func NewNotifier(
	notificationRepo *repository.NotificationRepository,
	mailer MailSender,
	cfg *config.NotifyConfig,
	logger *zap.Logger,
) *Notifier {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	n := &Notifier{
		notificationRepo: notificationRepo,
		mailer:           mailer,
		recipients:       cfg.Recipients,
		queue:            make(chan notifyTask, queueSize),
		logger:           logger,
	}
	n.wg.Add(1)
	go n.worker()
	return n
}

// Notify enqueues one operator notification. Fire and forget: never
// blocks and never returns an error.
func (n *Notifier) Notify(event domain.NotifyEvent, leadID uuid.UUID, track domain.Track, title, message string) {
	task := notifyTask{
		event:   event,
		leadID:  leadID,
		track:   track,
		title:   title,
		message: message,
	}
	select {
	case n.queue <- task:
	default:
		n.logger.Warn("notification queue full, dropping event",
			zap.String("event", string(event)),
			zap.String("lead_id", leadID.String()),
		)
	}
}

// Close stops accepting events and drains the queue
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		close(n.queue)
	})
	n.wg.Wait()
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for task := range n.queue {
		n.dispatch(task)
	}
}

// dispatch persists the notification and emails operators. All
// failures are logged and dropped.
func (n *Notifier) dispatch(task notifyTask) {
	ctx := context.Background()

	notification := &domain.Notification{
		Event:      task.event,
		LeadID:     task.leadID,
		Track:      task.track,
		Title:      task.title,
		Message:    task.message,
		Recipients: n.recipients,
	}
	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		n.logger.Error("failed to persist notification",
			zap.String("event", string(task.event)),
			zap.String("lead_id", task.leadID.String()),
			zap.Error(err),
		)
	}

	if len(n.recipients) == 0 {
		return
	}
	subject := fmt.Sprintf("[GulfSetup CRM] %s", task.title)
	body := email.NotifyBody(task.title, task.message)
	if err := n.mailer.Send(email.ChannelNotify, n.recipients, subject, body); err != nil {
		n.logger.Error("failed to email notification",
			zap.String("event", string(task.event)),
			zap.String("lead_id", task.leadID.String()),
			zap.Error(err),
		)
	}
}
