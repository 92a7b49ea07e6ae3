package notify

import (
	"context"

	"econ-calendar-bot/internal/interfaces"
	"econ-calendar-bot/internal/journal"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/types"
)

// JournalSink records every message and its outcome after forwarding it.
type JournalSink struct {
	next    interfaces.Sink
	journal *journal.Journal
}

func NewJournalSink(next interfaces.Sink, j *journal.Journal) *JournalSink {
	return &JournalSink{next: next, journal: j}
}

func (s *JournalSink) Send(ctx context.Context, msg types.Message) error {
	err := s.next.Send(ctx, msg)
	if jerr := s.journal.Append(msg, err); jerr != nil {
		logger.Warn(ctx, "Failed to write journal entry", "error", jerr, "title", msg.Title)
	}
	return err
}
