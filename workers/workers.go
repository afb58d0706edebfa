// Package workers implements the Channel Workers (C5): per-channel
// goroutine pools that lease jobs from the queue, resolve the recipient,
// render the template, invoke the channel adapter, and write status back
// to the Notification Store.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/adapters"
	"github.com/5-VED/notification-dispatcher/apperrors"
	"github.com/5-VED/notification-dispatcher/models"
	"github.com/5-VED/notification-dispatcher/queue"
	"github.com/5-VED/notification-dispatcher/repositories"
	"github.com/5-VED/notification-dispatcher/resolver"
)

// Metrics is the minimal counter surface a Pool reports into; satisfied by
// the metrics package without creating an import cycle.
type Metrics interface {
	RecordProcessed()
	RecordError()
}

// Pool runs a fixed number of worker goroutines against one channel's
// Queue.
type Pool struct {
	channel  models.Channel
	queue    *queue.Queue
	notifRepo repositories.NotificationRepository
	resolver resolver.Resolver
	adapter  adapters.ChannelAdapter
	metrics  Metrics
	logger   *zap.Logger

	pollInterval time.Duration
}

// NewPool builds a worker Pool for one channel.
func NewPool(
	channel models.Channel,
	q *queue.Queue,
	notifRepo repositories.NotificationRepository,
	res resolver.Resolver,
	adapter adapters.ChannelAdapter,
	metrics Metrics,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		channel:      channel,
		queue:        q,
		notifRepo:    notifRepo,
		resolver:     res,
		adapter:      adapter,
		metrics:      metrics,
		logger:       logger,
		pollInterval: 200 * time.Millisecond,
	}
}

// Run starts workerCount goroutines that lease and process jobs until ctx
// is cancelled, then returns once they have all drained their current job.
func (p *Pool) Run(ctx context.Context, workerCount int) {
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	<-ctx.Done()
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := p.queue.Lease(ctx)
			if err != nil {
				p.logger.Warn("lease failed", zap.String("channel", string(p.channel)), zap.Error(err))
				continue
			}
			if job == nil {
				continue
			}
			p.process(ctx, job)
		}
	}
}

// process runs the per-job procedure in §4.5.
func (p *Pool) process(ctx context.Context, job *queue.Job) {
	if err := p.notifRepo.UpdateStatus(ctx, job.NotificationID, models.StatusProcessing, ""); err != nil {
		p.logger.Error("failed to mark processing", zap.String("notificationId", job.NotificationID.String()), zap.Error(err))
	}

	err := p.deliver(ctx, job)
	if err == nil {
		if uerr := p.notifRepo.UpdateStatus(ctx, job.NotificationID, models.StatusSent, ""); uerr != nil {
			p.logger.Error("failed to mark sent", zap.Error(uerr))
		}
		if cerr := p.queue.Complete(ctx, job); cerr != nil {
			p.logger.Error("failed to complete job", zap.Error(cerr))
		}
		p.metrics.RecordProcessed()
		return
	}

	p.metrics.RecordError()

	var derr *apperrors.DispatchError
	message := err.Error()
	if errors.As(err, &derr) {
		message = derr.Message
	}

	if uerr := p.notifRepo.UpdateStatus(ctx, job.NotificationID, models.StatusFailed, message); uerr != nil {
		p.logger.Error("failed to mark failed", zap.Error(uerr))
	}

	dead, ferr := p.queue.Fail(ctx, job)
	if ferr != nil {
		p.logger.Error("failed to apply retry policy", zap.Error(ferr))
		return
	}
	if dead {
		p.logger.Info("job exhausted retries, terminal failure",
			zap.String("notificationId", job.NotificationID.String()),
			zap.String("channel", string(p.channel)),
		)
	} else if uerr := p.notifRepo.UpdateStatus(ctx, job.NotificationID, models.StatusQueued, ""); uerr != nil {
		p.logger.Error("failed to requeue for retry", zap.Error(uerr))
	}
}

// deliver resolves the recipient, renders the template, and invokes the
// channel adapter, fanning out to every active device token for PUSH.
func (p *Pool) deliver(ctx context.Context, job *queue.Job) error {
	title, message, htmlContent := p.render(ctx, job)

	switch p.channel {
	case models.ChannelEmail:
		recipient := p.resolver.GetEmailRecipient(ctx, job.UserID)
		if recipient == "" {
			return apperrors.RecipientMissingErr(string(p.channel))
		}
		return p.adapter.Send(ctx, adapters.SendInput{Recipient: recipient, Title: title, Message: message, HTMLContent: htmlContent})

	case models.ChannelSMS:
		recipient := p.resolver.GetPhoneRecipient(ctx, job.UserID)
		if recipient == "" {
			return apperrors.RecipientMissingErr(string(p.channel))
		}
		return p.adapter.Send(ctx, adapters.SendInput{Recipient: recipient, Title: title, Message: message})

	case models.ChannelPush:
		tokens := p.resolver.GetActiveDeviceTokens(ctx, job.UserID)
		if len(tokens) == 0 {
			return apperrors.RecipientMissingErr(string(p.channel))
		}
		return p.sendPushFanOut(ctx, tokens, title, message, job.UserID)

	default:
		return apperrors.New(apperrors.InvalidArgument, "unknown channel", false)
	}
}

// sendPushFanOut delivers to every active token in parallel; the job
// succeeds iff every token send succeeds (§4.5's stated behavior, kept per
// the Design Note §9 partial-success decision). Invalid tokens are
// deactivated regardless of overall outcome.
func (p *Pool) sendPushFanOut(ctx context.Context, tokens []*models.DeviceToken, title, message, userID string) error {
	type result struct {
		token string
		err   error
	}

	results := make(chan result, len(tokens))
	var wg sync.WaitGroup
	for _, t := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			err := p.adapter.Send(ctx, adapters.SendInput{Recipient: token, Title: title, Message: message})
			results <- result{token: token, err: err}
		}(t.Token)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for r := range results {
		if r.err == nil {
			continue
		}
		var derr *apperrors.DispatchError
		if errors.As(r.err, &derr) && derr.Code == apperrors.AdapterPermanent {
			if derr2 := p.resolver.DeactivateDeviceToken(ctx, userID, r.token); derr2 != nil {
				p.logger.Warn("failed to deactivate invalid token", zap.Error(derr2))
			}
		}
		if firstErr == nil {
			firstErr = r.err
		}
	}
	return firstErr
}

// render fetches the active template via the Channel Resolver (cache-first)
// and renders it; on no template it falls back to the job's raw fields.
func (p *Pool) render(ctx context.Context, job *queue.Job) (title, message, htmlContent string) {
	tmpl := p.resolver.GetTemplate(ctx, job.Type, p.channel)
	if tmpl == nil {
		return job.Title, job.Message, ""
	}

	vars := make(map[string]string, len(job.Metadata)+2)
	vars["title"] = job.Title
	vars["message"] = job.Message
	for k, v := range job.Metadata {
		vars[k] = toString(v)
	}

	rendered := tmpl.Render(vars)
	return rendered.Title, rendered.Message, rendered.HTMLContent
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
