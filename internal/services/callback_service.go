package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/osvaldoandrade/songbridge/internal/metrics"
	"github.com/osvaldoandrade/songbridge/internal/tracing"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrMissingTaskID = errors.New("taskId is required")
	ErrMalformedBody = errors.New("malformed callback body")
)

const (
	ackReceived       = "Callback received"
	ackLyricsReceived = "Lyrics callback received"
	ackDuplicate      = "Already processed"
	ackCoverStored    = "Cover callback processed successfully"
)

// CallbackService is the receiving side of provider webhooks. Music and lyrics
// callbacks are acknowledged before any normalization runs; the rest happens in a
// detached goroutine whose failures are only logged.
type CallbackService interface {
	ReceiveMusic(ctx context.Context, body []byte) (*domain.CallbackAck, error)
	ReceiveLyrics(ctx context.Context, body []byte) (*domain.CallbackAck, error)
	ReceiveCover(ctx context.Context, body []byte) (*domain.CallbackAck, error)
	// Wait blocks until deferred work has finished or ctx is done.
	Wait(ctx context.Context) error
}

type callbackService struct {
	store      persistence.PluginPersistence
	covers     persistence.CoverResultStorage
	normalizer NormalizerService
	dispatcher DispatcherService
	logger     *slog.Logger
	now        func() time.Time

	wg sync.WaitGroup
}

func NewCallbackService(store persistence.PluginPersistence, normalizer NormalizerService, dispatcher DispatcherService, logger *slog.Logger, now func() time.Time) CallbackService {
	if normalizer == nil {
		normalizer = NewNormalizerService()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &callbackService{
		store:      store,
		covers:     store.CoverResults(),
		normalizer: normalizer,
		dispatcher: dispatcher,
		logger:     logger,
		now:        now,
	}
}

func (s *callbackService) ReceiveMusic(ctx context.Context, body []byte) (*domain.CallbackAck, error) {
	start := time.Now()
	var cb domain.MusicCallback
	if err := decodeCallback(body, &cb); err != nil {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindMusic), "malformed").Inc()
		return nil, err
	}
	taskID := strings.TrimSpace(cb.TaskID.String())
	if taskID == "" {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindMusic), "missing_task_id").Inc()
		return nil, ErrMissingTaskID
	}

	key := fmt.Sprintf("%s_%s_%s", taskID, cb.Status, cb.Type)
	ack, fresh, err := s.accept(ctx, domain.KindMusic, key, taskID, ackReceived)
	if err != nil || !fresh {
		return ack, err
	}
	s.logger.Info("music callback received", "task_id", taskID, "status", cb.Status.String(), "type", cb.Type.String())

	s.spawn(ctx, domain.KindMusic, taskID, func(ctx context.Context) error {
		n, err := s.normalizer.NormalizeMusic(cb)
		if err != nil {
			return err
		}
		if n == nil {
			s.logger.Info("music callback stage ignored", "task_id", taskID, "status", cb.Status.String(), "type", cb.Type.String())
			return nil
		}
		return s.dispatch(ctx, *n)
	})
	metrics.CallbackAckLatencySeconds.WithLabelValues(string(domain.KindMusic)).Observe(time.Since(start).Seconds())
	return ack, nil
}

func (s *callbackService) ReceiveLyrics(ctx context.Context, body []byte) (*domain.CallbackAck, error) {
	start := time.Now()
	var cb domain.LyricsCallback
	if err := decodeCallback(body, &cb); err != nil {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindLyrics), "malformed").Inc()
		return nil, err
	}
	taskID := cb.TaskID()
	if taskID == "" {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindLyrics), "missing_task_id").Inc()
		return nil, ErrMissingTaskID
	}

	key := fmt.Sprintf("lyrics_%s_%s", taskID, domain.CodeString(cb.Code))
	ack, fresh, err := s.accept(ctx, domain.KindLyrics, key, taskID, ackLyricsReceived)
	if err != nil || !fresh {
		return ack, err
	}
	s.logger.Info("lyrics callback received", "task_id", taskID, "code", domain.CodeString(cb.Code), "callback_type", cb.CallbackType())

	s.spawn(ctx, domain.KindLyrics, taskID, func(ctx context.Context) error {
		n, err := s.normalizer.NormalizeLyrics(cb)
		if err != nil {
			return err
		}
		return s.dispatch(ctx, *n)
	})
	metrics.CallbackAckLatencySeconds.WithLabelValues(string(domain.KindLyrics)).Observe(time.Since(start).Seconds())
	return ack, nil
}

// ReceiveCover stores the result before acknowledging. Covers are polled, never pushed.
func (s *callbackService) ReceiveCover(ctx context.Context, body []byte) (*domain.CallbackAck, error) {
	start := time.Now()
	var cb domain.CoverCallback
	if err := decodeCallback(body, &cb); err != nil {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindCover), "malformed").Inc()
		return nil, err
	}
	if cb.TaskID() == "" {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindCover), "missing_task_id").Inc()
		return nil, ErrMissingTaskID
	}

	rec, err := s.normalizer.NormalizeCover(cb, s.now())
	if err != nil {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindCover), "malformed").Inc()
		return nil, err
	}
	if err := s.covers.Save(ctx, rec); err != nil {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindCover), "error").Inc()
		return nil, fmt.Errorf("store cover result: %w", err)
	}
	metrics.CallbacksReceivedTotal.WithLabelValues(string(domain.KindCover), "accepted").Inc()
	metrics.CallbackAckLatencySeconds.WithLabelValues(string(domain.KindCover)).Observe(time.Since(start).Seconds())
	s.logger.Info("cover result stored", "task_id", rec.Data.TaskID, "code", rec.Code, "images", len(rec.Data.Images))
	return &domain.CallbackAck{Success: true, Message: ackCoverStored}, nil
}

// accept records key in the processed set of kind and builds the acknowledgment.
// fresh is false for a key seen before.
func (s *callbackService) accept(ctx context.Context, kind domain.TaskKind, key, taskID, message string) (*domain.CallbackAck, bool, error) {
	added, err := s.store.ProcessedCallbacks(kind).AddIfAbsent(ctx, key)
	if err != nil {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, false, fmt.Errorf("record processed callback: %w", err)
	}
	ack := &domain.CallbackAck{
		Success:     true,
		Message:     message,
		TaskID:      taskID,
		ProcessedAt: domain.FormatProcessedAt(s.now()),
	}
	if !added {
		metrics.CallbacksReceivedTotal.WithLabelValues(string(kind), "duplicate").Inc()
		s.logger.Info("duplicate callback skipped", "kind", kind, "task_id", taskID, "key", key)
		ack.Message = ackDuplicate
		ack.Duplicate = true
		return ack, false, nil
	}
	metrics.CallbacksReceivedTotal.WithLabelValues(string(kind), "accepted").Inc()
	return ack, true, nil
}

func (s *callbackService) dispatch(ctx context.Context, n domain.Notification) error {
	metrics.NotificationsTotal.WithLabelValues(string(n.Type)).Inc()
	_, err := s.dispatcher.Dispatch(ctx, n)
	return err
}

// spawn runs fn after the caller has returned. The request context is detached
// from cancellation so the work survives the response being written.
func (s *callbackService) spawn(ctx context.Context, kind domain.TaskKind, taskID string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, span := tracing.Tracer("callbacks").Start(ctx, "songbridge.callback.process",
			trace.WithAttributes(
				attribute.String("songbridge.task_kind", string(kind)),
				attribute.String("songbridge.task_id", taskID),
			),
		)
		defer span.End()
		defer func() {
			if r := recover(); r != nil {
				metrics.DeferredFailuresTotal.WithLabelValues(string(kind)).Inc()
				span.SetStatus(codes.Error, "panic")
				s.logger.Error("deferred callback processing panicked", "kind", kind, "task_id", taskID, "panic", r)
			}
		}()

		if err := fn(ctx); err != nil {
			metrics.DeferredFailuresTotal.WithLabelValues(string(kind)).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("deferred callback processing failed", "kind", kind, "task_id", taskID, "err", err)
		}
	}()
}

func (s *callbackService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodeCallback rejects a body that is not a JSON object. Field types are checked
// later, by the normalizer.
func decodeCallback(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
