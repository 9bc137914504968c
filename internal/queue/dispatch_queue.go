package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/message-courier/internal/domain"
	"github.com/kursadbilgin/message-courier/internal/observability"
	"github.com/kursadbilgin/message-courier/internal/provider"
	"github.com/kursadbilgin/message-courier/internal/ratelimit"
	"github.com/kursadbilgin/message-courier/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = time.Second
	defaultSendTimeout  = 15 * time.Second
)

// ProviderResolver resolves a configured provider instance for a name and
// credential key.
type ProviderResolver interface {
	GetProvider(ctx context.Context, name, clientID string) (provider.Provider, error)
}

// Options configures a DispatchQueue.
type Options struct {
	Messages     repository.MessageRepository
	Credentials  repository.CredentialRepository
	Providers    ProviderResolver
	RateLimiter  ratelimit.RateLimiter
	Logger       *zap.Logger
	PollInterval time.Duration
	SendTimeout  time.Duration
}

// DispatchQueue coordinates a process-local pending list with the message
// store. A single poll loop drains the list, claims each message under a
// transactional row lock, and hands it to its provider. Delivery is
// at-least-once: a message failure rolls the claim back and the failure
// record is written separately, returning the row to the pending set.
type DispatchQueue struct {
	messages     repository.MessageRepository
	credentials  repository.CredentialRepository
	providers    ProviderResolver
	rateLimiter  ratelimit.RateLimiter
	logger       *zap.Logger
	metrics      *observability.Metrics
	pollInterval time.Duration
	sendTimeout  time.Duration

	// ctx is the permanent cancellation signal: once done, enqueues fail
	// and the poll loop exits for good.
	ctx context.Context

	mu         sync.Mutex
	pending    []int64
	processing bool
	stopCh     chan struct{}

	now func() time.Time
}

func NewDispatchQueue(ctx context.Context, opts Options) (*DispatchQueue, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	if opts.Providers == nil {
		return nil, fmt.Errorf("provider resolver is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}

	return &DispatchQueue{
		messages:     opts.Messages,
		credentials:  opts.Credentials,
		providers:    opts.Providers,
		rateLimiter:  opts.RateLimiter,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		sendTimeout:  opts.SendTimeout,
		ctx:          ctx,
		now:          time.Now,
	}, nil
}

func (q *DispatchQueue) SetMetrics(metrics *observability.Metrics) {
	if q == nil {
		return
	}
	q.metrics = metrics
}

// Enqueue appends a message id to the process-local pending list. Duplicate
// enqueues are tolerated: processMessage re-reads sentAt before acting.
func (q *DispatchQueue) Enqueue(messageID int64) error {
	if q.ctx.Err() != nil {
		return domain.ErrQueueAborted
	}

	q.mu.Lock()
	q.pending = append(q.pending, messageID)
	depth := len(q.pending)
	q.mu.Unlock()

	q.metrics.SetQueuePending(depth)
	return nil
}

// StartProcessing starts the poll loop. It is a no-op when the loop is
// already running. The first cycle runs immediately, not after the first
// interval.
func (q *DispatchQueue) StartProcessing() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.processing {
		return
	}

	q.processing = true
	q.stopCh = make(chan struct{})
	go q.run(q.stopCh)
}

// StopProcessing cancels the next scheduled poll. Idempotent. Unlike the
// abort signal, a stopped queue can be started again.
func (q *DispatchQueue) StopProcessing() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.processing {
		return
	}

	q.processing = false
	close(q.stopCh)
}

func (q *DispatchQueue) run(stop chan struct{}) {
	for {
		if q.ctx.Err() != nil {
			q.logger.Info("queue processing aborted")
			return
		}

		q.cycle()

		select {
		case <-q.ctx.Done():
			q.logger.Info("queue processing aborted")
			return
		case <-stop:
			return
		case <-time.After(q.pollInterval):
		}
	}
}

// cycle drains the current pending snapshot and processes each id
// sequentially. Ids enqueued during the cycle wait for the next one. A
// message failure never aborts the cycle.
func (q *DispatchQueue) cycle() {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	q.metrics.SetQueuePending(0)

	if len(batch) == 0 {
		return
	}

	// The abort signal must not interrupt an in-flight delivery
	// transaction; claims run on an uncancelable context.
	ctx := context.WithoutCancel(q.ctx)

	for _, id := range batch {
		if err := q.processMessage(ctx, id); err != nil {
			q.logger.Error("failed to process message",
				zap.Int64("messageId", id),
				zap.Error(err),
			)
		}
	}
}

// processMessage claims and delivers one message inside a single database
// transaction. On failure the transaction rolls back entirely and the
// failure record (error text, incremented retry count) is written in a
// separate statement that always lands.
func (q *DispatchQueue) processMessage(ctx context.Context, id int64) error {
	var claimed *domain.Message

	txErr := q.messages.Transaction(ctx, func(tx repository.MessageRepository) error {
		msg, err := tx.ClaimForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if msg == nil {
			q.logger.Info("message unavailable, skipping",
				zap.Int64("messageId", id),
			)
			return nil
		}
		if msg.SentAt != nil {
			q.logger.Debug("message already sent",
				zap.Int64("messageId", id),
			)
			return nil
		}
		if msg.Direction != domain.DirectionOutbound {
			q.logger.Warn("skipping non-outbound message",
				zap.Int64("messageId", id),
				zap.String("direction", msg.Direction.String()),
			)
			return nil
		}

		claimed = msg
		if err := q.deliver(ctx, msg); err != nil {
			return err
		}

		return tx.MarkSent(ctx, msg.ID, q.now().UTC())
	})

	if txErr == nil {
		if claimed != nil {
			q.metrics.IncMessageSent(claimed.Medium.String())
			q.logger.Info("message sent",
				zap.Int64("messageId", claimed.ID),
				zap.String("medium", claimed.Medium.String()),
				zap.String("correlationId", claimed.CorrelationID),
			)
		}
		return nil
	}

	if claimed == nil {
		// The claim itself failed; there is no attempt to record.
		return txErr
	}

	if err := q.messages.RecordFailure(ctx, claimed.ID, txErr.Error(), claimed.Retries+1); err != nil {
		q.logger.Error("failed to record delivery failure",
			zap.Int64("messageId", claimed.ID),
			zap.Error(err),
		)
	}

	q.metrics.IncMessageFailed(claimed.Medium.String(), failureReason(txErr))
	return txErr
}

// deliver resolves the message's credential and provider and performs the
// send. The resolved credential key is threaded into provider resolution so
// validation and delivery use the same secret set.
func (q *DispatchQueue) deliver(ctx context.Context, msg *domain.Message) error {
	cred, err := q.credentials.FindByID(ctx, msg.CredentialsID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: id %s", domain.ErrCredentialsNotFound, msg.CredentialsID)
		}
		return err
	}

	prov, err := q.providers.GetProvider(ctx, msg.Provider, cred.Key)
	if err != nil {
		return err
	}

	if prov.Medium() != msg.Medium {
		return fmt.Errorf("%w: provider %s delivers %s, message medium is %s",
			domain.ErrValidation, msg.Provider, prov.Medium(), msg.Medium)
	}

	switch msg.Medium {
	case domain.MediumSMS, domain.MediumEmail, domain.MediumPush:
	default:
		return fmt.Errorf("%w: medium %q", domain.ErrNotImplemented, msg.Medium)
	}

	if err := prov.ValidateSendOptions(msg.SendOptions); err != nil {
		return err
	}

	if q.rateLimiter != nil {
		if err := q.rateLimiter.Wait(ctx, msg.Medium.String()); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, q.sendTimeout)
	defer cancel()

	start := q.now()
	sendErr := prov.Send(sendCtx, msg.Body, msg.SendOptions)
	q.metrics.ObserveMessageSendDuration(msg.Medium.String(), q.now().Sub(start))

	return sendErr
}

// QueueUnprocessedMessages enqueues every pending message in creation-time
// order. This is the sole recovery mechanism after a restart: it runs once,
// after the HTTP listener is ready.
func (q *DispatchQueue) QueueUnprocessedMessages(ctx context.Context) error {
	pending, err := q.messages.FindPendingOrderedByCreation(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending messages: %w", err)
	}

	for i := range pending {
		if err := q.Enqueue(pending[i].ID); err != nil {
			return err
		}
	}

	q.logger.Info("queued unprocessed messages", zap.Int("count", len(pending)))
	return nil
}

// Flush synchronously claims and processes every currently pending row,
// bypassing the process-local list, and returns the count processed.
// Intended for draining before shutdown.
func (q *DispatchQueue) Flush(ctx context.Context) (int, error) {
	ids, err := q.messages.ClaimAllPendingIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending ids: %w", err)
	}

	for _, id := range ids {
		if err := q.processMessage(ctx, id); err != nil {
			q.logger.Error("failed to flush message",
				zap.Int64("messageId", id),
				zap.Error(err),
			)
		}
	}

	return len(ids), nil
}

// Dequeue peeks the oldest pending message id without processing it.
// Diagnostic only.
func (q *DispatchQueue) Dequeue(ctx context.Context) (int64, bool, error) {
	msg, err := q.messages.FindOldestPending(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return msg.ID, true, nil
}

func failureReason(err error) string {
	if provider.IsTransient(err) {
		return "transient_error"
	}
	return "permanent_error"
}
