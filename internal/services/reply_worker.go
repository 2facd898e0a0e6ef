package services

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull        = errors.New("reply queue is full, try again later")
	ErrWorkerNotRunning = errors.New("reply worker is not running")
)

// InboundMessage is one (already debounced) message waiting for a reply.
type InboundMessage struct {
	Phone      string    `json:"phone"`
	Text       string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// MessageProcessor answers and delivers one inbound message.
type MessageProcessor interface {
	ProcessAndDeliver(ctx context.Context, phone, text string) string
}

// ReplyWorker fans inbound messages out to a fixed set of shard goroutines.
// A phone always hashes to the same shard, so its messages are answered one
// at a time and in arrival order.
type ReplyWorker struct {
	processor MessageProcessor
	log       zerolog.Logger

	shards         []chan InboundMessage
	enqueueTimeout time.Duration
	jobTimeout     time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.RWMutex
}

func NewReplyWorker(processor MessageProcessor, workerCount, queueSize int, log zerolog.Logger) *ReplyWorker {
	if workerCount <= 0 {
		workerCount = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	shards := make([]chan InboundMessage, workerCount)
	for i := range shards {
		shards[i] = make(chan InboundMessage, queueSize)
	}

	return &ReplyWorker{
		processor:      processor,
		log:            log,
		shards:         shards,
		enqueueTimeout: 100 * time.Millisecond,
		jobTimeout:     5 * time.Minute,
		stopChan:       make(chan struct{}),
	}
}

// ========== WORKER LIFECYCLE ==========

func (w *ReplyWorker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	for i := range w.shards {
		w.wg.Add(1)
		go w.worker(i)
	}
	w.log.Info().Int("shards", len(w.shards)).Msg("reply worker started")
}

// Stop waits for in-flight replies; queued messages that were not started are
// dropped.
func (w *ReplyWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	dropped := 0
	for _, ch := range w.shards {
		dropped += len(ch)
	}
	w.log.Info().Int("dropped", dropped).Msg("reply worker stopped")
}

func (w *ReplyWorker) shardFor(phone string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return int(h.Sum32() % uint32(len(w.shards)))
}

// Enqueue schedules msg on its phone's shard.
func (w *ReplyWorker) Enqueue(msg InboundMessage) error {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()
	if !running {
		return ErrWorkerNotRunning
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	shard := w.shardFor(msg.Phone)
	select {
	case w.shards[shard] <- msg:
		replyQueueDepth.WithLabelValues(shardLabel(shard)).Set(float64(len(w.shards[shard])))
		return nil
	case <-time.After(w.enqueueTimeout):
		replyQueueFullTotal.WithLabelValues(shardLabel(shard)).Inc()
		return ErrQueueFull
	}
}

// ========== WORKER IMPLEMENTATION ==========

func (w *ReplyWorker) worker(shard int) {
	defer w.wg.Done()
	label := shardLabel(shard)

	for {
		select {
		case <-w.stopChan:
			return
		case msg := <-w.shards[shard]:
			replyQueueDepth.WithLabelValues(label).Set(float64(len(w.shards[shard])))
			w.process(label, msg)
		}
	}
}

func (w *ReplyWorker) process(label string, msg InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error().Str("phone", msg.Phone).Interface("panic", rec).Msg("reply job panicked")
		}
	}()

	start := time.Now()
	w.processor.ProcessAndDeliver(ctx, msg.Phone, msg.Text)
	replyDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	w.log.Debug().
		Str("phone", msg.Phone).
		Dur("queued", start.Sub(msg.ReceivedAt)).
		Dur("took", time.Since(start)).
		Msg("reply processed")
}

func (w *ReplyWorker) GetStatus() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	depths := make([]int, len(w.shards))
	for i, ch := range w.shards {
		depths[i] = len(ch)
	}
	return map[string]interface{}{
		"running":      w.running,
		"shards":       len(w.shards),
		"queue_depths": depths,
	}
}
