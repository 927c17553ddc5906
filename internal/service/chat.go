package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/stock-advisor/internal/agent"
	"github.com/sakif/stock-advisor/internal/apperror"
	"github.com/sakif/stock-advisor/internal/quota"
)

// MaxMessageLength bounds a chat message. The API accepts 1 to 1000
// characters.
const MaxMessageLength = 1000

// ChatService charges the daily quota and invokes the advisor agent.
type ChatService struct {
	quota  *quota.Manager
	agent  agent.Agent
	logger *slog.Logger
}

func NewChatService(quota *quota.Manager, agent agent.Agent, logger *slog.Logger) *ChatService {
	return &ChatService{
		quota:  quota,
		agent:  agent,
		logger: logger,
	}
}

// ChatResult is one completed agent exchange.
type ChatResult struct {
	Response  string
	Timestamp time.Time
	UserID    string
	MessageID string
	Remaining int
}

// Send validates the message, spends one query, and runs the agent.
//
// ORDER OF OPERATIONS:
// The quota charge lands atomically before the agent runs and is NOT
// refunded if the agent fails. Refunding would let a flaky agent grant
// unlimited retries, and reconciling a refund against concurrent spends
// reopens the race the atomic consume closes. A failed agent call
// therefore still costs a query; the discrepancy is logged.
func (s *ChatService) Send(ctx context.Context, subjectID, message string) (*ChatResult, error) {
	if n := len([]rune(message)); n < 1 || n > MaxMessageLength {
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("message must be between 1 and %d characters", MaxMessageLength))
	}

	remaining, err := s.quota.Consume(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperror.ErrQuotaExceeded) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.Unavailable(fmt.Sprintf("consuming quota for %s", subjectID), err)
	}

	s.logger.Info("chat message accepted",
		slog.String("subjectID", subjectID),
		slog.Int("messageLength", len(message)),
		slog.Int("queriesRemaining", remaining),
	)

	response, err := s.agent.Run(ctx, message)
	if err != nil {
		// The query is already charged; log the accounting discrepancy
		// and fail the request without touching the counter again.
		s.logger.Error("agent invocation failed after quota charge",
			slog.String("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("invoking agent", err)
	}

	return &ChatResult{
		Response:  response,
		Timestamp: time.Now().UTC(),
		UserID:    subjectID,
		MessageID: "msg_" + xid.New().String(),
		Remaining: remaining,
	}, nil
}
