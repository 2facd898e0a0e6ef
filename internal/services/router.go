package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"zubi/internal/models"
	"zubi/internal/openai"
	"zubi/internal/utils"
)

type Intent string

const (
	IntentMeal              Intent = "meal"
	IntentInfo              Intent = "info"
	IntentNutritionQuestion Intent = "nutrition_question"
	IntentOther             Intent = "other"
)

const fallbackConversationReply = "Estou aqui para te ajudar com a sua alimentação! Me conta o que você comeu ou me pergunte sobre nutrição. 😊"

// foodKeywords trigger the meal path without a model call. Any food mention
// wins over every other intent.
var foodKeywords = []string{
	"comi", "comer", "almocei", "jantei", "lanchei", "tomei", "bebi", "belisquei",
	"cafe da manha", "almoco", "janta", "lanche", "refeicao", "ceia",
	"arroz", "feijao", "pao", "frango", "carne", "peixe", "ovo", "salada", "fruta",
	"banana", "maca", "pizza", "macarrao", "hamburguer", "batata", "queijo", "iogurte",
	"leite", "suco", "refrigerante", "cerveja", "chocolate", "bolo", "biscoito", "tapioca", "cuscuz",
}

var infoKeywords = []string{
	"meus dados", "meu perfil", "meu resumo", "minha meta", "minhas metas", "quanto falta",
	"quantas calorias faltam", "meu progresso", "resumo do dia", "meu imc",
}

// mealLogVerbs report something already eaten; during intake only these
// count as a meal log, so "quero comer melhor" still reaches the extractor.
var mealLogVerbs = []string{"comi", "almocei", "jantei", "lanchei", "tomei", "bebi", "belisquei"}

func containsWord(text string, words []string) bool {
	padded := " " + plainWords(text) + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}

func mentionsFood(text string) bool {
	return containsWord(text, foodKeywords)
}

func reportsMeal(text string) bool {
	return containsWord(text, mealLogVerbs)
}

// clauseSeparator splits sentences and comma lists but keeps "1,75" whole.
var clauseSeparator = regexp.MustCompile(`[;!?\n]+|[,.]\s+`)

// portionWords describe how much was eaten, e.g. "2 fatias".
var portionWords = []string{
	"fatia", "fatias", "colher", "colheres", "copo", "copos", "prato", "pratos", "unidade", "unidades",
	"pedaco", "pedacos", "xicara", "xicaras", "concha", "conchas", "porcao", "porcoes", "g", "gramas", "ml",
}

// answerClauses returns the clauses of a meal report that say nothing about
// food, so "almocei, tenho 30 anos" yields "tenho 30 anos".
func answerClauses(text string) []string {
	var out []string
	for _, c := range clauseSeparator.Split(text, -1) {
		c = strings.TrimSpace(c)
		if c == "" || mentionsFood(c) || containsWord(c, portionWords) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func asksForInfo(text string) bool {
	return utils.ContainsAny(plainWords(text), infoKeywords...)
}

// Router picks the intake flow or the journaling paths for each message.
type Router struct {
	store  *ConversationStore
	intake *IntakeFlow
	meals  *MealLogger
	llm    openai.Completer
	log    zerolog.Logger
}

func NewRouter(store *ConversationStore, intake *IntakeFlow, meals *MealLogger, llm openai.Completer, log zerolog.Logger) *Router {
	return &Router{store: store, intake: intake, meals: meals, llm: llm, log: log}
}

// Route records the inbound message, answers it and records every reply part.
func (r *Router) Route(ctx context.Context, phone, text string) models.Reply {
	messagesReceivedTotal.Inc()
	r.store.AppendMessage(ctx, phone, models.RoleUser, text)

	reply, route := r.dispatch(ctx, phone, text)
	routedTotal.WithLabelValues(route).Inc()
	r.log.Debug().Str("phone", phone).Str("route", route).Int("parts", len(reply.Parts)).Msg("message routed")

	for _, part := range reply.Parts {
		r.store.AppendMessage(ctx, phone, models.RoleSystem, part)
	}
	return reply
}

func (r *Router) dispatch(ctx context.Context, phone, text string) (models.Reply, string) {
	profile := r.store.Profile(ctx, phone)

	if !profile.IsComplete() || !r.store.IsIntakeComplete(ctx, phone) {
		if !profile.IsComplete() && reportsMeal(text) && !r.store.IsFirstMessage(ctx, phone) {
			return r.redirectMeal(ctx, phone, text)
		}
		return r.intake.Handle(ctx, phone, text), "intake"
	}

	// Meal verbs are food keywords too, so "oi, comi um pão" is a meal.
	if isGreetingOnly(text) && !mentionsFood(text) {
		return models.NewReply(JournalGreeting(profile.Name)), "greeting"
	}

	switch r.Classify(ctx, text) {
	case IntentMeal:
		return models.NewReply(r.meals.LogMeal(ctx, text, phone)), "meal"
	case IntentInfo:
		return models.NewReply(profile.Summary(), r.meals.DailySummary(ctx, phone)), "info"
	case IntentNutritionQuestion:
		return models.NewReply(r.converse(ctx, phone, text, profile)), "nutrition_question"
	default:
		return models.NewReply(r.converse(ctx, phone, text, profile)), "other"
	}
}

// redirectMeal answers a meal reported mid-intake. Any clause that answers
// the pending question is kept; the meal itself is logged only when that
// answer completes the profile.
func (r *Router) redirectMeal(ctx context.Context, phone, text string) (models.Reply, string) {
	applied := r.intake.AbsorbAnswers(ctx, phone, answerClauses(text))
	profile := r.store.Profile(ctx, phone)

	if len(applied) > 0 && profile.IsComplete() {
		reply := r.intake.Finish(ctx, phone)
		reply.Add(r.meals.LogMeal(ctx, text, phone))
		return reply, "intake"
	}
	return models.NewReply(
		IntakeRedirectMessage(profile.Name),
		r.intake.PendingQuestion(ctx, phone),
	), "intake_redirect"
}

// Classify applies the local keyword rules first and asks the model only when
// neither matches.
func (r *Router) Classify(ctx context.Context, text string) Intent {
	if mentionsFood(text) {
		return IntentMeal
	}
	if asksForInfo(text) {
		return IntentInfo
	}

	raw, err := r.llm.CompleteJSON(ctx, classifyPrompt(text))
	if err != nil {
		llmFailuresTotal.WithLabelValues("classify").Inc()
		r.log.Warn().Err(err).Msg("intent classification failed")
		return IntentOther
	}
	var out struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		llmFailuresTotal.WithLabelValues("classify").Inc()
		return IntentOther
	}
	switch Intent(strings.TrimSpace(strings.ToLower(out.Intent))) {
	case IntentMeal:
		return IntentMeal
	case IntentInfo:
		return IntentInfo
	case IntentNutritionQuestion:
		return IntentNutritionQuestion
	}
	return IntentOther
}

func (r *Router) converse(ctx context.Context, phone, text string, profile models.Profile) string {
	history := r.store.RecentMessages(ctx, phone, 6)
	answer, err := r.llm.Complete(ctx, basePrompt, conversationPrompt(text, profile, history), 0.7)
	if err != nil || answer == "" {
		llmFailuresTotal.WithLabelValues("converse").Inc()
		r.log.Warn().Err(err).Str("phone", phone).Msg("conversation reply failed, using fallback")
		return fallbackConversationReply
	}
	return answer
}
