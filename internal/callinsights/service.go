package callinsights

import (
	"context"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Service ingests transcripts and serves ranked history.
type Service struct {
	store   Store
	archive *Archive
	logger  *logging.Logger
}

func NewService(store Store, archive *Archive, logger *logging.Logger) *Service {
	if store == nil {
		panic("callinsights: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, archive: archive, logger: logger}
}

// Ingest stores a transcript and archives it. Archive failures are logged.
func (s *Service) Ingest(ctx context.Context, orgID string, req CreateTranscriptRequest) (*Transcript, error) {
	t, err := s.store.Create(ctx, orgID, req)
	if err != nil {
		return nil, err
	}
	if err := s.archive.Store(ctx, t); err != nil {
		s.logger.Warn("transcript archive failed", "transcript_id", t.ID, "org_id", orgID, "error", err)
	}
	return t, nil
}

// Ranked returns up to MaxRanked transcripts in prompt order.
func (s *Service) Ranked(ctx context.Context, orgID string) ([]Transcript, error) {
	list, err := s.store.ListRanked(ctx, orgID, MaxRanked)
	if err != nil {
		return nil, err
	}
	return Rank(list), nil
}

// Summary ranks the org's history and summarises it.
func (s *Service) Summary(ctx context.Context, orgID string, opts Options) (Summary, error) {
	ranked, err := s.Ranked(ctx, orgID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(ranked, opts), nil
}
