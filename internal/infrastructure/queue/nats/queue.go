// Package nats carries suggestion requests and results over NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aopmap/kemapper/internal/core/domain"
	"github.com/aopmap/kemapper/internal/infrastructure/resilience"
)

// SuggestionRequest is the wire format of one unit of work: which key
// event to map, into which candidate domain, with which signals.
type SuggestionRequest struct {
	RequestID   string `json:"request_id,omitempty"`
	KEID        string `json:"ke_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Level       string `json:"level,omitempty"`
	Domain      string `json:"domain"` // "pathway" or "go"
	Method      string `json:"method,omitempty"`
}

type Queue struct {
	conn           *nats.Conn
	requestSubject string
	resultSubject  string
	queueName      string
	executor       *resilience.Executor
	logger         *slog.Logger
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
}

func New(url, requestSubject, resultSubject, queueName string, options Options, logger *slog.Logger) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("kemapper"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		requestSubject: requestSubject,
		resultSubject:  resultSubject,
		queueName:      queueName,
		executor:       options.ResilienceExecutor,
		logger:         logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishSuggestionResult sends a computed result to the result subject.
func (q *Queue) PublishSuggestionResult(ctx context.Context, result *domain.SuggestionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal suggestion result: %w", err)
	}

	call := func(context.Context) error {
		if err := q.conn.Publish(q.resultSubject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeSuggestionRequests consumes requests from the queue group until
// the context ends. Malformed payloads are logged and dropped; they must
// not poison the subscription.
func (q *Queue) SubscribeSuggestionRequests(ctx context.Context, handler func(context.Context, SuggestionRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.requestSubject, q.queueName, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var request SuggestionRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			q.logger.Warn("dropping malformed suggestion request", "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, request); err != nil {
			q.logger.Error("suggestion handler failed", "ke_id", request.KEID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
