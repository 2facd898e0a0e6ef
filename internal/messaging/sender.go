package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

var ErrDeliveryFailed = errors.New("message delivery failed")

// Sender delivers one text message to a WhatsApp phone number.
type Sender interface {
	SendText(ctx context.Context, phone, text string) error
}

// LogSender writes outbound messages to the log instead of delivering them.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendText(_ context.Context, phone, text string) error {
	s.log.Info().Str("phone", phone).Str("text", text).Msg("outbound message")
	return nil
}

// WriterSender prints each outbound message to w, one block per part.
type WriterSender struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

func (s *WriterSender) SendText(_ context.Context, _ string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "Zubi: %s\n\n", text)
	return err
}
