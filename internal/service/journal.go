package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_summarizer.go -package=mocks lifehub/internal/service Summarizer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_journal_service.go -package=mocks -mock_names=JournalService=MockJournalService lifehub/internal/service JournalService

import (
	"context"
	"encoding/json"
	"fmt"

	"lifehub/internal/contextutil"
	"lifehub/internal/llm"
)

const journalSystemPrompt = "You are an assistant that reads a series of personal journal entries " +
	"and writes a reflective recap of the period they cover."

// Summarizer is an interface for the external text generator.
// This interface is defined from the service layer's perspective (consumer-first).
type Summarizer interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// JournalRequest is a set of client journal entries within a date range.
// Entries are passed through opaquely.
type JournalRequest struct {
	Entries   []json.RawMessage
	StartDate string
	EndDate   string
}

// JournalResponse carries the generated text.
type JournalResponse struct {
	Entry string
}

// JournalService generates journal recaps.
type JournalService interface {
	Generate(ctx context.Context, req JournalRequest) (JournalResponse, error)
}

type journalService struct {
	summarizer Summarizer
}

// NewJournalService creates a new JournalService. A nil summarizer makes
// every request fail with ErrUnavailable.
func NewJournalService(summarizer Summarizer) JournalService {
	return &journalService{summarizer: summarizer}
}

func (s *journalService) Generate(ctx context.Context, req JournalRequest) (JournalResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(req.Entries) == 0 {
		logger.WarnContext(ctx, "empty journal request", "start_date", req.StartDate, "end_date", req.EndDate)
		return JournalResponse{}, &ValidationError{
			Field:   "journalEntries",
			Message: "no journal entries found in the specified date range",
		}
	}
	if s.summarizer == nil {
		return JournalResponse{}, classify(ErrUnavailable, fmt.Errorf("no summarizer configured"))
	}

	payload, err := json.Marshal(struct {
		StartDate string            `json:"startDate,omitempty"`
		EndDate   string            `json:"endDate,omitempty"`
		Entries   []json.RawMessage `json:"journalEntries"`
	}{req.StartDate, req.EndDate, req.Entries})
	if err != nil {
		return JournalResponse{}, &ValidationError{Field: "journalEntries", Message: err.Error()}
	}

	reply, err := s.summarizer.ChatWithMessages(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: journalSystemPrompt},
		{Role: llm.RoleUser, Content: string(payload)},
	}, llm.ChatParams{MaxTokens: 2000, Temperature: 0.7})
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate journal entry", "error", err)
		return JournalResponse{}, classify(ErrExternalService, err)
	}

	logger.InfoContext(ctx, "journal entry generated", "entries", len(req.Entries), "reply_length", len(reply))
	return JournalResponse{Entry: reply}, nil
}
