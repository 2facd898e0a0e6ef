package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zubi/internal/messaging"
	"zubi/internal/models"
)

// phoneLockStripes bounds the per-phone locks held by ChatService.
const phoneLockStripes = 64

const ApologyMessage = "Desculpe, tive um problema para processar sua mensagem. Pode tentar novamente em instantes? 🙏"

// ChatService is the boundary between the transport and the conversation
// core. Nothing below it is allowed to escape as a panic or an error.
// Messages from one phone are routed one at a time, whether they arrive
// through the reply worker or the synchronous chat endpoint.
type ChatService struct {
	router *Router
	sender messaging.Sender
	pacing time.Duration
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration)

	phoneLocks [phoneLockStripes]sync.Mutex
}

func NewChatService(router *Router, sender messaging.Sender, pacing time.Duration, log zerolog.Logger) *ChatService {
	return &ChatService{
		router: router,
		sender: sender,
		pacing: pacing,
		log:    log,
		sleep:  sleepContext,
	}
}

func (s *ChatService) lockFor(phone string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(phone))
	return &s.phoneLocks[h.Sum32()%phoneLockStripes]
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Reply routes one message and returns every part of the answer. A panic
// anywhere in the pipeline becomes the apology.
func (s *ChatService) Reply(ctx context.Context, phone, text string) (reply models.Reply) {
	mu := s.lockFor(phone)
	mu.Lock()
	defer mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().
				Str("phone", phone).
				Err(fmt.Errorf("panic: %v", rec)).
				Msg("message pipeline panicked")
			reply = models.NewReply(ApologyMessage)
		}
	}()

	reply = s.router.Route(ctx, phone, text)
	if len(reply.Parts) == 0 {
		s.log.Warn().Str("phone", phone).Msg("empty reply, sending apology")
		reply = models.NewReply(ApologyMessage)
	}
	return reply
}

// HandleIncomingMessage returns the whole reply as one text.
func (s *ChatService) HandleIncomingMessage(ctx context.Context, phone, text string) string {
	return s.Reply(ctx, phone, text).Text()
}

// ProcessAndDeliver routes the message and sends each part with the pacing
// delay between them. It returns the delivered text, or the apology when a
// part could not be delivered.
func (s *ChatService) ProcessAndDeliver(ctx context.Context, phone, text string) string {
	reply := s.Reply(ctx, phone, text)

	for i, part := range reply.Parts {
		if i > 0 {
			s.sleep(ctx, s.pacing)
		}
		if err := s.sender.SendText(ctx, phone, part); err != nil {
			deliveryFailuresTotal.Inc()
			s.log.Error().Err(err).Str("phone", phone).Int("part", i).Msg("failed to deliver reply")
			if err := s.sender.SendText(ctx, phone, ApologyMessage); err != nil {
				s.log.Error().Err(err).Str("phone", phone).Msg("failed to deliver apology")
			}
			return ApologyMessage
		}
	}
	return reply.Text()
}
