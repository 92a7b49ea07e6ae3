package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"econ-calendar-bot/internal/types"
)

// ConsoleSink prints one JSON object per message. Used for dry runs.
type ConsoleSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{enc: json.NewEncoder(w)}
}

func (s *ConsoleSink) Send(_ context.Context, msg types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}
