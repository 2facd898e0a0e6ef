package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zubi/internal/models"
	"zubi/internal/repository"
)

// ConversationStore owns every conversation. It keeps a process cache in front
// of a ConversationRepository, loading through on a miss and writing through
// after each mutation. Backend failures are logged; the store itself never
// fails, and a missing record is created on first use.
type ConversationStore struct {
	repo        repository.ConversationRepository
	log         zerolog.Logger
	historyDays int
	now         func() time.Time

	mu        sync.Mutex
	cache     map[string]*models.Conversation
	transient map[string]*models.Conversation
}

func NewConversationStore(repo repository.ConversationRepository, log zerolog.Logger, historyDays int) *ConversationStore {
	return &ConversationStore{
		repo:        repo,
		log:         log,
		historyDays: historyDays,
		now:         time.Now,
		cache:       map[string]*models.Conversation{},
		transient:   map[string]*models.Conversation{},
	}
}

// WithClock replaces the clock used to key day buckets.
func (s *ConversationStore) WithClock(now func() time.Time) *ConversationStore {
	s.now = now
	return s
}

func (s *ConversationStore) today() string {
	return s.now().Format(models.DateLayout)
}

// load returns the cached conversation, creating it if needed, and makes sure
// today's bucket exists. When the backend read fails the conversation is
// served from a transient copy that is never cached or written back, and the
// backend is asked again on the next access. Caller holds s.mu.
func (s *ConversationStore) load(ctx context.Context, phone string) (*models.Conversation, bool) {
	conv, ok := s.cache[phone]
	if !ok {
		found, err := s.repo.Find(ctx, phone)
		switch {
		case err == nil:
			conv = found
		case errors.Is(err, repository.ErrConversationNotFound):
			conv = models.NewConversation(phone, s.now())
		default:
			s.log.Error().Err(err).Str("phone", phone).Msg("failed to load conversation, serving a transient copy")
			conv, ok = s.transient[phone]
			if !ok {
				conv = models.NewConversation(phone, s.now())
				s.transient[phone] = conv
			}
			s.ensureToday(phone, conv)
			return conv, false
		}
		s.cache[phone] = conv
		delete(s.transient, phone)
	}

	s.ensureToday(phone, conv)
	return conv, true
}

func (s *ConversationStore) ensureToday(phone string, conv *models.Conversation) {
	date := s.today()
	if _, exists := conv.Days[date]; exists {
		return
	}
	conv.Day(date)
	if s.historyDays > 0 {
		cutoff := s.now().AddDate(0, 0, -s.historyDays).Format(models.DateLayout)
		if removed := conv.PruneBefore(cutoff); removed > 0 {
			s.log.Debug().Str("phone", phone).Int("days", removed).Msg("pruned conversation history")
		}
	}
}

// update runs fn against the conversation and persists the result. Changes to
// a transient copy stay in memory only.
func (s *ConversationStore) update(ctx context.Context, phone string, fn func(conv *models.Conversation)) {
	s.mu.Lock()
	conv, durable := s.load(ctx, phone)
	fn(conv)
	conv.UpdatedAt = s.now()
	if !durable {
		s.mu.Unlock()
		s.log.Warn().Str("phone", phone).Msg("backend unavailable, change not persisted")
		return
	}
	snapshot, err := clone(conv)
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("phone", phone).Msg("failed to snapshot conversation")
		return
	}
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.log.Error().Err(err).Str("phone", phone).Msg("failed to persist conversation")
	}
}

// read runs fn against the conversation without persisting.
func (s *ConversationStore) read(ctx context.Context, phone string, fn func(conv *models.Conversation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, _ := s.load(ctx, phone)
	fn(conv)
}

func clone(conv *models.Conversation) (*models.Conversation, error) {
	data, err := repository.Encode(conv)
	if err != nil {
		return nil, err
	}
	return repository.Decode(data)
}

// GetOrCreate returns a snapshot of the conversation. Mutating the snapshot
// does not affect the store.
func (s *ConversationStore) GetOrCreate(ctx context.Context, phone string) *models.Conversation {
	var out *models.Conversation
	s.read(ctx, phone, func(conv *models.Conversation) {
		var err error
		if out, err = clone(conv); err != nil {
			s.log.Error().Err(err).Str("phone", phone).Msg("failed to snapshot conversation")
			out = models.NewConversation(phone, s.now())
		}
	})
	return out
}

func (s *ConversationStore) AppendMessage(ctx context.Context, phone string, role models.Role, text string) {
	s.update(ctx, phone, func(conv *models.Conversation) {
		day := conv.Day(s.today())
		day.Messages = append(day.Messages, models.Message{Role: role, Text: text, Timestamp: s.now()})
		day.MessageCount++
		if day.MessageCount > 1 {
			day.FirstInteraction = false
		}
	})
}

// IsFirstMessage reports whether today's message counter is exactly one.
func (s *ConversationStore) IsFirstMessage(ctx context.Context, phone string) bool {
	var first bool
	s.read(ctx, phone, func(conv *models.Conversation) {
		first = conv.Day(s.today()).MessageCount == 1
	})
	return first
}

func (s *ConversationStore) RecordMeal(ctx context.Context, phone string, meal models.MealEntry) {
	s.update(ctx, phone, func(conv *models.Conversation) {
		day := conv.Day(s.today())
		day.Meals = append(day.Meals, meal)
	})
}

func (s *ConversationStore) MealsForToday(ctx context.Context, phone string) []models.MealEntry {
	var meals []models.MealEntry
	s.read(ctx, phone, func(conv *models.Conversation) {
		meals = append(meals, conv.Day(s.today()).Meals...)
	})
	return meals
}

// sortedDates returns the day keys oldest first.
func sortedDates(conv *models.Conversation) []string {
	dates := make([]string, 0, len(conv.Days))
	for d := range conv.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// RecentMessages returns up to n of the latest messages, oldest first.
func (s *ConversationStore) RecentMessages(ctx context.Context, phone string, n int) []models.Message {
	var out []models.Message
	s.read(ctx, phone, func(conv *models.Conversation) {
		dates := sortedDates(conv)
		for i := len(dates) - 1; i >= 0 && len(out) < n; i-- {
			msgs := conv.Days[dates[i]].Messages
			for j := len(msgs) - 1; j >= 0 && len(out) < n; j-- {
				out = append(out, msgs[j])
			}
		}
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// LastSystemQuestion scans newest-first for the last assistant message that
// contains a question mark.
func (s *ConversationStore) LastSystemQuestion(ctx context.Context, phone string) (string, bool) {
	var (
		question string
		found    bool
	)
	s.read(ctx, phone, func(conv *models.Conversation) {
		dates := sortedDates(conv)
		for i := len(dates) - 1; i >= 0; i-- {
			msgs := conv.Days[dates[i]].Messages
			for j := len(msgs) - 1; j >= 0; j-- {
				if msgs[j].Role == models.RoleSystem && strings.Contains(msgs[j].Text, "?") {
					question, found = msgs[j].Text, true
					return
				}
			}
		}
	})
	return question, found
}

// RememberQuestionContext records the question just asked and the fields it
// targets, keeping only the most recent five.
func (s *ConversationStore) RememberQuestionContext(ctx context.Context, phone string, fields []models.Field, question string) {
	s.update(ctx, phone, func(conv *models.Conversation) {
		conv.RememberQuestion(models.QuestionContext{
			Fields:   append([]models.Field(nil), fields...),
			Question: question,
			AskedAt:  s.now(),
		})
	})
}

func (s *ConversationStore) LastQuestionContext(ctx context.Context, phone string) (models.QuestionContext, bool) {
	var (
		q  models.QuestionContext
		ok bool
	)
	s.read(ctx, phone, func(conv *models.Conversation) {
		q, ok = conv.LastQuestion()
	})
	return q, ok
}

func (s *ConversationStore) QuestionContexts(ctx context.Context, phone string) []models.QuestionContext {
	var out []models.QuestionContext
	s.read(ctx, phone, func(conv *models.Conversation) {
		out = append(out, conv.Questions...)
	})
	return out
}

// AddUsefulContext records which answer filled which field today.
func (s *ConversationStore) AddUsefulContext(ctx context.Context, phone string, field models.Field, question, answer string) {
	s.update(ctx, phone, func(conv *models.Conversation) {
		day := conv.Day(s.today())
		day.UsefulContexts = append(day.UsefulContexts, models.UsefulContext{
			Field:    field,
			Question: question,
			Answer:   answer,
		})
	})
}

func (s *ConversationStore) Profile(ctx context.Context, phone string) models.Profile {
	var p models.Profile
	s.read(ctx, phone, func(conv *models.Conversation) {
		p = conv.Profile
	})
	return p
}

// UpdateProfile merges the valid values of u and returns the accepted fields.
func (s *ConversationStore) UpdateProfile(ctx context.Context, phone string, u models.ProfileUpdate) []models.Field {
	if u.Empty() {
		return nil
	}
	var applied []models.Field
	s.update(ctx, phone, func(conv *models.Conversation) {
		applied = conv.Profile.Apply(u)
	})
	return applied
}

// Reset drops the conversation from the cache and the backend, so the next
// message starts a new intake.
func (s *ConversationStore) Reset(ctx context.Context, phone string) error {
	s.mu.Lock()
	delete(s.cache, phone)
	delete(s.transient, phone)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, phone); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", phone, err)
	}
	s.log.Info().Str("phone", phone).Msg("conversation reset")
	return nil
}

func (s *ConversationStore) MarkIntakeComplete(ctx context.Context, phone string) {
	s.update(ctx, phone, func(conv *models.Conversation) {
		conv.IntakeComplete = true
	})
}

func (s *ConversationStore) IsIntakeComplete(ctx context.Context, phone string) bool {
	var done bool
	s.read(ctx, phone, func(conv *models.Conversation) {
		done = conv.IntakeComplete
	})
	return done
}

// State derives the intake state machine position from the stored record.
func (s *ConversationStore) State(ctx context.Context, phone string) models.IntakeState {
	var state models.IntakeState
	s.read(ctx, phone, func(conv *models.Conversation) {
		switch {
		case conv.IntakeComplete:
			state = models.StateJournaling
		case conv.Profile.IsComplete():
			state = models.StateComplete
		case conv.Day(s.today()).MessageCount == 0 && conv.Profile.IsEmpty():
			state = models.StateGreeting
		default:
			state = models.StateCollecting
		}
	})
	return state
}
