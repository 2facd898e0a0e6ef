package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"zubi/internal/models"
	"zubi/internal/openai"
	"zubi/internal/utils"
)

const (
	GreetingComplete = "Oi! Tudo ótimo, obrigada por perguntar! 😊"
	GreetingSimple   = "Oi! 😊"
	GreetingNone     = "Olá! 😊"
	Presentation     = "Me chamo Zubi, sou uma nutricionista virtual especializada em ajudar pessoas a alcançarem seus objetivos de saúde. 🌱"
	NameRequest      = "Estou aqui para criar um plano nutricional personalizado para você. Para começarmos essa jornada juntos, poderia me dizer seu nome? 😊"

	QuestionGender         = "Você é homem ou mulher? (H/M)"
	QuestionHeightWeight   = "Qual sua altura (em cm) e peso (em kg)?"
	QuestionActivity       = "Como você descreveria seu nível de atividade física?\n1. Sedentário (pouco ou nenhum exercício)\n2. Leve (exercício 1 a 3 vezes por semana)\n3. Moderado (exercício 3 a 5 vezes por semana)\n4. Ativo (exercício 6 a 7 vezes por semana)\n5. Muito ativo (exercício intenso diário ou trabalho físico)"
	fallbackAnswer         = "Boa pergunta! Essas informações me ajudam a calcular suas necessidades nutricionais com precisão. 😊"
	transitionMessageTempl = "Pronto %s! Sua análise está completa. Agora você pode começar a incluir suas refeições do dia. Sem pressa, estarei aqui esperando você me atualizar."
)

// fallbackQuestions are used when the model cannot phrase the next question.
var fallbackQuestions = map[models.Field]string{
	models.FieldName:          "Qual seu nome?",
	models.FieldAge:           "Quantos anos você tem?",
	models.FieldGender:        QuestionGender,
	models.FieldWeight:        "Qual seu peso atual em kg?",
	models.FieldHeight:        "Qual sua altura em cm?",
	models.FieldActivityLevel: QuestionActivity,
	models.FieldGoal:          "Qual seu objetivo? (perda de peso, ganho de massa ou manutenção)",
}

var clarifications = map[models.Field]string{
	models.FieldName:          "Quero saber como posso te chamar durante a nossa conversa. 😊",
	models.FieldAge:           "A idade influencia diretamente o seu gasto calórico basal, por isso preciso dela para os cálculos.",
	models.FieldGender:        "Homens e mulheres têm metabolismos diferentes, então o sexo muda a fórmula do gasto calórico.",
	models.FieldWeight:        "Com o seu peso atual consigo calcular quantas calorias o seu corpo gasta por dia.",
	models.FieldHeight:        "A altura, junto com o peso, me permite calcular o seu IMC e o seu gasto calórico.",
	models.FieldActivityLevel: "O nível de atividade física mostra o quanto você se movimenta no dia a dia e ajusta as suas calorias diárias.",
	models.FieldGoal:          "O seu objetivo define se o plano terá déficit, superávit ou manutenção de calorias.",
}

var clarificationPhrases = []string{
	"como assim", "nao entendi", "nao entendo", "nao sei o que", "explica melhor", "pode explicar",
	"o que voce quer dizer", "que isso", "pra que", "para que serve", "por que precisa",
}

type greetingKind int

const (
	greetingNone greetingKind = iota
	greetingSimple
	greetingComplete
)

func classifyGreeting(text string) greetingKind {
	n := " " + plainWords(text) + " "
	switch {
	case utils.ContainsAny(n, " tudo bem ", " tudo bom ", " td bem ", " como vai ", " como voce esta ", " como vc esta ", " tudo certo "):
		return greetingComplete
	case utils.ContainsAny(n, " oi ", " oii ", " ola ", " bom dia ", " boa tarde ", " boa noite ", " e ai ", " eai ", " opa ", " hey ", " hello "):
		return greetingSimple
	}
	return greetingNone
}

// plainWords normalizes text and replaces punctuation with spaces.
func plainWords(text string) string {
	n := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, utils.Normalize(text))
	return strings.Join(strings.Fields(n), " ")
}

// isGreetingOnly reports a message that is nothing but a greeting.
func isGreetingOnly(text string) bool {
	n := plainWords(text)
	return greetingWords[n] || (classifyGreeting(text) != greetingNone && len(utils.Tokens(n)) <= 4)
}

func isClarificationRequest(text string) bool {
	n := utils.Normalize(text)
	return len(utils.Tokens(n)) <= 8 && utils.ContainsAny(n, clarificationPhrases...)
}

// IntakeFlow drives the profile interview until every field is present.
type IntakeFlow struct {
	store     *ConversationStore
	extractor *FieldExtractor
	llm       openai.Completer
	log       zerolog.Logger
}

func NewIntakeFlow(store *ConversationStore, extractor *FieldExtractor, llm openai.Completer, log zerolog.Logger) *IntakeFlow {
	return &IntakeFlow{store: store, extractor: extractor, llm: llm, log: log}
}

// Handle answers one inbound message during intake. The user message must
// already be appended to the store.
func (f *IntakeFlow) Handle(ctx context.Context, phone, text string) models.Reply {
	profile := f.store.Profile(ctx, phone)

	if f.store.IsFirstMessage(ctx, phone) && profile.IsEmpty() {
		return f.greet(ctx, phone, text)
	}

	lastQuestion, _ := f.store.LastSystemQuestion(ctx, phone)
	var qctx *models.QuestionContext
	if q, ok := f.store.LastQuestionContext(ctx, phone); ok {
		qctx = &q
	}
	pending := f.pendingField(profile, lastQuestion, qctx)

	if isClarificationRequest(text) {
		f.log.Debug().Str("phone", phone).Str("field", string(pending)).Msg("clarification requested")
		return models.NewReply(clarifications[pending], f.reask(ctx, phone, profile, lastQuestion, qctx))
	}

	ext := f.extractor.Extract(ctx, ExtractionInput{
		Message:         text,
		LastQuestion:    lastQuestion,
		QuestionContext: qctx,
		History:         f.store.RecentMessages(ctx, phone, 4),
		Profile:         profile,
	})

	applied := f.store.UpdateProfile(ctx, phone, ext.Fields)
	for _, field := range applied {
		f.store.AddUsefulContext(ctx, phone, field, lastQuestion, text)
	}
	profile = f.store.Profile(ctx, phone)
	if len(applied) > 0 {
		f.log.Info().Str("phone", phone).Interface("fields", applied).Str("rule", ext.Rule).Msg("profile updated")
	}

	reply := models.Reply{}
	if ext.HasQuestion {
		reply.Add(f.answerQuestion(ctx, ext.QuestionTopic, lastQuestion, profile))
	}

	if profile.IsComplete() {
		for _, part := range f.complete(ctx, phone, profile).Parts {
			reply.Add(part)
		}
		return reply
	}

	if len(applied) == 0 {
		reply.Add(f.reask(ctx, phone, profile, lastQuestion, qctx))
		return reply
	}

	reply.Add(f.askNext(ctx, phone, profile))
	return reply
}

func (f *IntakeFlow) greet(ctx context.Context, phone, text string) models.Reply {
	first := GreetingNone
	switch classifyGreeting(text) {
	case greetingComplete:
		first = GreetingComplete
	case greetingSimple:
		first = GreetingSimple
	}
	f.store.RememberQuestionContext(ctx, phone, []models.Field{models.FieldName}, NameRequest)
	return models.NewReply(first, Presentation, NameRequest)
}

// pendingField is the field the conversation is waiting for.
func (f *IntakeFlow) pendingField(profile models.Profile, lastQuestion string, qctx *models.QuestionContext) models.Field {
	for _, field := range TargetFields(lastQuestion, qctx) {
		if !profile.Has(field) {
			return field
		}
	}
	next, _ := profile.NextMissingField()
	return next
}

// reask repeats the last question while it still targets a missing field,
// otherwise asks for the next missing field.
func (f *IntakeFlow) reask(ctx context.Context, phone string, profile models.Profile, lastQuestion string, qctx *models.QuestionContext) string {
	for _, field := range TargetFields(lastQuestion, qctx) {
		if !profile.Has(field) {
			return lastQuestion
		}
	}
	return f.askNext(ctx, phone, profile)
}

// AbsorbAnswers applies what the clauses answer to the last question, using
// the local rules only, and returns the fields accepted.
func (f *IntakeFlow) AbsorbAnswers(ctx context.Context, phone string, clauses []string) []models.Field {
	if len(clauses) == 0 {
		return nil
	}
	lastQuestion, _ := f.store.LastSystemQuestion(ctx, phone)
	var qctx *models.QuestionContext
	if q, ok := f.store.LastQuestionContext(ctx, phone); ok {
		qctx = &q
	}

	var accepted []models.Field
	for _, clause := range clauses {
		ext, ok := f.extractor.ExtractLocal(ExtractionInput{
			Message:         clause,
			LastQuestion:    lastQuestion,
			QuestionContext: qctx,
			Profile:         f.store.Profile(ctx, phone),
		})
		// Any short clause passes as a name, so names are left to Handle.
		if !ok || ext.Rule == "name" {
			continue
		}
		applied := f.store.UpdateProfile(ctx, phone, ext.Fields)
		for _, field := range applied {
			f.store.AddUsefulContext(ctx, phone, field, lastQuestion, clause)
		}
		accepted = append(accepted, applied...)
	}
	if len(accepted) > 0 {
		f.log.Info().Str("phone", phone).Interface("fields", accepted).Msg("profile updated alongside a meal")
	}
	return accepted
}

// Finish delivers the analysis for a complete profile.
func (f *IntakeFlow) Finish(ctx context.Context, phone string) models.Reply {
	return f.complete(ctx, phone, f.store.Profile(ctx, phone))
}

// PendingQuestion returns the question the user still owes an answer to,
// without generating a new one when possible.
func (f *IntakeFlow) PendingQuestion(ctx context.Context, phone string) string {
	profile := f.store.Profile(ctx, phone)
	if profile.IsComplete() {
		return ""
	}
	lastQuestion, _ := f.store.LastSystemQuestion(ctx, phone)
	var qctx *models.QuestionContext
	if q, ok := f.store.LastQuestionContext(ctx, phone); ok {
		qctx = &q
	}
	return f.reask(ctx, phone, profile, lastQuestion, qctx)
}

// askNext phrases the question for the first missing field in canonical
// order and remembers it.
func (f *IntakeFlow) askNext(ctx context.Context, phone string, profile models.Profile) string {
	next, ok := profile.NextMissingField()
	if !ok {
		return ""
	}

	fields := []models.Field{next}
	var question string
	switch {
	case next == models.FieldGender:
		question = QuestionGender
	case next == models.FieldActivityLevel:
		question = QuestionActivity
	case next == models.FieldWeight && !profile.Has(models.FieldHeight):
		question = QuestionHeightWeight
		fields = []models.Field{models.FieldHeight, models.FieldWeight}
	default:
		question = f.generateQuestion(ctx, next, profile)
	}

	f.store.RememberQuestionContext(ctx, phone, fields, question)
	return question
}

func (f *IntakeFlow) generateQuestion(ctx context.Context, field models.Field, profile models.Profile) string {
	q, err := f.llm.Complete(ctx, basePrompt, questionPrompt(field, profile), 0.7)
	if err != nil || !strings.Contains(q, "?") {
		if err != nil {
			llmFailuresTotal.WithLabelValues("question").Inc()
			f.log.Warn().Err(err).Str("field", string(field)).Msg("question generation failed, using script")
		}
		return fallbackQuestions[field]
	}
	return q
}

func (f *IntakeFlow) answerQuestion(ctx context.Context, topic, lastQuestion string, profile models.Profile) string {
	answer, err := f.llm.Complete(ctx, basePrompt, answerPrompt(topic, lastQuestion, profile), 0.7)
	if err != nil || answer == "" {
		llmFailuresTotal.WithLabelValues("answer").Inc()
		f.log.Warn().Err(err).Msg("question answering failed, using fallback")
		return fallbackAnswer
	}
	return answer
}

// complete delivers the analysis and moves the conversation to journaling.
func (f *IntakeFlow) complete(ctx context.Context, phone string, profile models.Profile) models.Reply {
	summary := profile.Summary()
	formatted, err := f.llm.Complete(ctx, basePrompt, summaryPrompt(summary), 0.3)
	if err != nil || formatted == "" {
		llmFailuresTotal.WithLabelValues("summary").Inc()
		f.log.Warn().Err(err).Str("phone", phone).Msg("summary formatting failed, sending plain summary")
		formatted = summary
	}

	f.store.MarkIntakeComplete(ctx, phone)
	intakesCompletedTotal.Inc()
	f.log.Info().Str("phone", phone).Msg("intake complete")

	return models.NewReply(formatted, TransitionMessage(profile.Name))
}

func TransitionMessage(name string) string {
	return fmt.Sprintf(transitionMessageTempl, name)
}
