package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/arojasjg/milicon/notification-service/internal/domain"
	"go.uber.org/zap"
)

var ErrProviderUnavailable = errors.New("notification provider unavailable")

type Sender interface {
	Send(ctx context.Context, email domain.Email) error
}

// LogSender writes emails to the log instead of delivering them. A non-zero
// failureRate makes that share of sends fail.
type LogSender struct {
	logger      *zap.Logger
	failureRate float64
	roll        func() float64
}

func NewLogSender(logger *zap.Logger, failureRate float64) *LogSender {
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &LogSender{logger: logger, failureRate: failureRate, roll: rand.Float64}
}

func (s *LogSender) Send(ctx context.Context, email domain.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failureRate > 0 && s.roll() < s.failureRate {
		return ErrProviderUnavailable
	}

	s.logger.Info("Email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("body_length", len(email.Body)),
	)
	return nil
}
