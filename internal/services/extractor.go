package services

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"zubi/internal/models"
	"zubi/internal/openai"
	"zubi/internal/utils"
)

// MaxExtractionCalls bounds the remaining-text loop of the model extraction.
const MaxExtractionCalls = 5

// shortAnswerTokens is the longest reply that still counts as a direct answer.
const shortAnswerTokens = 5

// Extraction is what one inbound message contributed to the profile.
type Extraction struct {
	Fields        models.ProfileUpdate
	HasQuestion   bool
	QuestionTopic string
	// Rule names the local rule that produced the fields, empty when the
	// model path ran.
	Rule string
}

// ExtractionInput is one message plus the context the extractor may use.
type ExtractionInput struct {
	Message         string
	LastQuestion    string
	QuestionContext *models.QuestionContext
	History         []models.Message
	Profile         models.Profile
}

type FieldExtractor struct {
	llm openai.Completer
	log zerolog.Logger
}

func NewFieldExtractor(llm openai.Completer, log zerolog.Logger) *FieldExtractor {
	return &FieldExtractor{llm: llm, log: log}
}

// Extract never fails: a model error or unparsable output yields an empty
// extraction.
func (e *FieldExtractor) Extract(ctx context.Context, in ExtractionInput) Extraction {
	if ext, ok := e.ExtractLocal(in); ok {
		return ext
	}
	return e.extractWithModel(ctx, in)
}

// ExtractLocal runs only the short-answer rules and reports whether one
// matched.
func (e *FieldExtractor) ExtractLocal(in ExtractionInput) (Extraction, bool) {
	targets := TargetFields(in.LastQuestion, in.QuestionContext)
	if len(targets) == 0 || !isShortAnswer(in.Message) {
		return Extraction{}, false
	}
	return applyRules(in, targets)
}

// TargetFields decides which field(s) the last question asked for. A
// remembered question context wins when it belongs to that question;
// otherwise keywords in the question text decide.
func TargetFields(lastQuestion string, qctx *models.QuestionContext) []models.Field {
	if lastQuestion == "" {
		return nil
	}
	if qctx != nil && len(qctx.Fields) > 0 && strings.Contains(lastQuestion, qctx.Question) {
		return qctx.Fields
	}

	q := utils.Normalize(lastQuestion)
	switch {
	case utils.ContainsAny(q, "homem ou mulher", "sexo", "(h/m)", "genero"):
		return []models.Field{models.FieldGender}
	case utils.ContainsAny(q, "objetivo", "meta"):
		return []models.Field{models.FieldGoal}
	case utils.ContainsAny(q, "atividade", "exercicio", "se exercita", "treina"):
		return []models.Field{models.FieldActivityLevel}
	case utils.ContainsAny(q, "altura", "alto", "alta") && utils.ContainsAny(q, "peso", "pesa"):
		return []models.Field{models.FieldHeight, models.FieldWeight}
	case utils.ContainsAny(q, "altura", "alto", "alta", "mede"):
		return []models.Field{models.FieldHeight}
	case utils.ContainsAny(q, "peso", "pesa", "quilos"):
		return []models.Field{models.FieldWeight}
	case utils.ContainsAny(q, "idade", "quantos anos"):
		return []models.Field{models.FieldAge}
	case utils.ContainsAny(q, "nome", "se chama", "te chamar"):
		return []models.Field{models.FieldName}
	}
	return nil
}

func isShortAnswer(msg string) bool {
	return len(utils.Tokens(msg)) <= shortAnswerTokens || utils.IsNumeric(msg)
}

type rule struct {
	name    string
	applies func(targets []models.Field) bool
	extract func(in ExtractionInput, targets []models.Field) (models.ProfileUpdate, bool)
}

func targeting(fields ...models.Field) func([]models.Field) bool {
	return func(targets []models.Field) bool {
		for _, f := range fields {
			if !containsField(targets, f) {
				return false
			}
		}
		return true
	}
}

func containsField(fields []models.Field, f models.Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}

// rules are tried in order; the first one that yields a value wins.
var rules = []rule{
	{name: "gender", applies: targeting(models.FieldGender), extract: genderAnswer},
	{name: "height_weight", applies: targeting(models.FieldHeight, models.FieldWeight), extract: heightWeightAnswer},
	{name: "height", applies: targeting(models.FieldHeight), extract: heightAnswer},
	{name: "age", applies: targeting(models.FieldAge), extract: ageAnswer},
	{name: "weight", applies: targeting(models.FieldWeight), extract: weightAnswer},
	{name: "activity", applies: targeting(models.FieldActivityLevel), extract: activityAnswer},
	{name: "goal", applies: targeting(models.FieldGoal), extract: goalAnswer},
	{name: "confirmation", applies: func(t []models.Field) bool {
		return containsField(t, models.FieldActivityLevel) || containsField(t, models.FieldGoal)
	}, extract: confirmationAnswer},
	{name: "name", applies: targeting(models.FieldName), extract: nameAnswer},
}

func applyRules(in ExtractionInput, targets []models.Field) (Extraction, bool) {
	for _, r := range rules {
		if !r.applies(targets) {
			continue
		}
		if u, ok := r.extract(in, targets); ok {
			return Extraction{Fields: u, Rule: r.name}, true
		}
	}
	return Extraction{}, false
}

func genderAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	if g, ok := models.ParseGender(in.Message); ok {
		return models.ProfileUpdate{Gender: &g}, true
	}
	for _, tok := range utils.Tokens(utils.Normalize(in.Message)) {
		if g, ok := models.ParseGender(strings.Trim(tok, ".,!")); ok {
			return models.ProfileUpdate{Gender: &g}, true
		}
	}
	return models.ProfileUpdate{}, false
}

// heightWeightAnswer reads "1,75 e 70" style answers. A number written in
// meters is the height; otherwise the largest centimeter value is. The first
// other valid number is the weight.
func heightWeightAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	numbers := utils.Numbers(in.Message)

	heightAt := -1
	for i, n := range numbers {
		if models.IsMeterHeight(n) {
			heightAt = i
			break
		}
	}
	if heightAt < 0 {
		for i, n := range numbers {
			if models.ValidHeight(n) && (heightAt < 0 || n > numbers[heightAt]) {
				heightAt = i
			}
		}
	}

	var u models.ProfileUpdate
	if heightAt >= 0 {
		h, _ := models.NormalizeHeight(numbers[heightAt])
		u.HeightCm = &h
	}
	for i, n := range numbers {
		if i != heightAt && models.ValidWeight(n) {
			w := n
			u.WeightKg = &w
			break
		}
	}
	return u, !u.Empty()
}

func heightAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	n, ok := utils.FirstNumber(in.Message)
	if !ok {
		return models.ProfileUpdate{}, false
	}
	h, ok := models.NormalizeHeight(n)
	if !ok {
		return models.ProfileUpdate{}, false
	}
	return models.ProfileUpdate{HeightCm: &h}, true
}

func ageAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	n, ok := utils.FirstNumber(in.Message)
	if !ok || n != math.Trunc(n) {
		return models.ProfileUpdate{}, false
	}
	age := int(n)
	if !models.ValidAge(age) {
		return models.ProfileUpdate{}, false
	}
	return models.ProfileUpdate{Age: &age}, true
}

func weightAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	n, ok := utils.FirstNumber(in.Message)
	if !ok || !models.ValidWeight(n) {
		return models.ProfileUpdate{}, false
	}
	return models.ProfileUpdate{WeightKg: &n}, true
}

// activityOptions maps the numbered choices of the scripted activity question.
var activityOptions = map[string]models.ActivityLevel{
	"1": models.ActivitySedentary,
	"2": models.ActivityLight,
	"3": models.ActivityModerate,
	"4": models.ActivityActive,
	"5": models.ActivityVeryActive,
}

func activityAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	msg := strings.Trim(utils.Normalize(in.Message), ".!) ")
	if a, ok := activityOptions[msg]; ok {
		return models.ProfileUpdate{ActivityLevel: &a}, true
	}
	if a, ok := models.ParseActivityLevel(msg); ok {
		return models.ProfileUpdate{ActivityLevel: &a}, true
	}
	return models.ProfileUpdate{}, false
}

func goalAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	if g, ok := models.ParseGoal(in.Message); ok {
		return models.ProfileUpdate{Goal: &g}, true
	}
	return models.ProfileUpdate{}, false
}

var affirmatives = map[string]bool{
	"sim": true, "isso": true, "isso mesmo": true, "exato": true, "exatamente": true,
	"correto": true, "certo": true, "pode ser": true, "s": true, "aham": true, "uhum": true,
}

// confirmationAnswer accepts "sim" when the last question proposed exactly
// one activity level or goal, e.g. "Seu objetivo é ganhar massa, certo?".
func confirmationAnswer(in ExtractionInput, targets []models.Field) (models.ProfileUpdate, bool) {
	if !affirmatives[strings.Trim(utils.Normalize(in.Message), ".!, ")] {
		return models.ProfileUpdate{}, false
	}
	if containsField(targets, models.FieldGoal) {
		if g, ok := proposedGoal(in.LastQuestion); ok {
			return models.ProfileUpdate{Goal: &g}, true
		}
	}
	if containsField(targets, models.FieldActivityLevel) {
		if a, ok := proposedActivity(in.LastQuestion); ok {
			return models.ProfileUpdate{ActivityLevel: &a}, true
		}
	}
	return models.ProfileUpdate{}, false
}

func proposedGoal(question string) (models.Goal, bool) {
	seen := map[models.Goal]bool{}
	for _, tok := range utils.Tokens(utils.Normalize(question)) {
		if g, ok := models.ParseGoal(strings.Trim(tok, "?.,!()")); ok {
			seen[g] = true
		}
	}
	if len(seen) != 1 {
		return "", false
	}
	for g := range seen {
		return g, true
	}
	return "", false
}

func proposedActivity(question string) (models.ActivityLevel, bool) {
	q := utils.Normalize(question)
	seen := map[models.ActivityLevel]bool{}
	if strings.Contains(q, "muito ativ") {
		seen[models.ActivityVeryActive] = true
		q = strings.ReplaceAll(q, "muito ativ", "")
	}
	for _, tok := range utils.Tokens(q) {
		tok = strings.Trim(tok, "?.,!()")
		if tok == "atividade" || tok == "atividades" {
			continue
		}
		if a, ok := models.ParseActivityLevel(tok); ok {
			seen[a] = true
		}
	}
	if len(seen) != 1 {
		return "", false
	}
	for a := range seen {
		return a, true
	}
	return "", false
}

var namePrefixes = [][]string{
	{"meu", "nome", "e"},
	{"me", "chamo"},
	{"pode", "me", "chamar", "de"},
	{"eu", "sou", "o"},
	{"eu", "sou", "a"},
	{"eu", "sou"},
	{"sou", "o"},
	{"sou", "a"},
	{"sou"},
	{"e"},
}

var greetingWords = map[string]bool{
	"oi": true, "ola": true, "opa": true, "eai": true, "e ai": true, "hey": true, "hello": true,
	"bom dia": true, "boa tarde": true, "boa noite": true, "tudo bem": true, "tudo bom": true,
}

var titleCaser = cases.Title(language.BrazilianPortuguese)

func nameAnswer(in ExtractionInput, _ []models.Field) (models.ProfileUpdate, bool) {
	raw := utils.Tokens(strings.Trim(strings.TrimSpace(in.Message), ".!,"))
	norm := make([]string, len(raw))
	for i, tok := range raw {
		norm[i] = strings.Trim(utils.Normalize(tok), ".!,")
	}

	for _, prefix := range namePrefixes {
		if len(norm) > len(prefix) && hasPrefix(norm, prefix) {
			raw, norm = raw[len(prefix):], norm[len(prefix):]
			break
		}
	}
	if len(raw) == 0 || len(raw) > 3 {
		return models.ProfileUpdate{}, false
	}
	if greetingWords[strings.Join(norm, " ")] || greetingWords[norm[0]] {
		return models.ProfileUpdate{}, false
	}

	for i, tok := range raw {
		raw[i] = strings.Trim(tok, ".!,")
	}
	name := titleCaser.String(strings.Join(raw, " "))
	if !models.ValidName(name) {
		return models.ProfileUpdate{}, false
	}
	return models.ProfileUpdate{Name: &name}, true
}

func hasPrefix(tokens, prefix []string) bool {
	for i, p := range prefix {
		if tokens[i] != p {
			return false
		}
	}
	return true
}

// flexNumber accepts JSON numbers, numeric strings ("1,75", "70 kg") and null.
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if v, ok := utils.FirstNumber(s); ok {
			n.value, n.set = v, true
		}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	n.value, n.set = v, true
	return nil
}

type modelExtraction struct {
	Name            *string    `json:"name"`
	Age             flexNumber `json:"age"`
	Gender          *string    `json:"gender"`
	WeightKg        flexNumber `json:"weight_kg"`
	HeightCm        flexNumber `json:"height_cm"`
	ActivityLevel   *string    `json:"activity_level"`
	Goal            *string    `json:"goal"`
	HasQuestion     bool       `json:"has_question"`
	QuestionContext *string    `json:"question_context"`
	RemainingText   string     `json:"remaining_text"`
}

// validated keeps only values that pass the local validators.
func (m modelExtraction) validated() models.ProfileUpdate {
	var u models.ProfileUpdate
	if m.Name != nil {
		name := strings.TrimSpace(*m.Name)
		if models.ValidName(name) {
			u.Name = &name
		}
	}
	if m.Age.set && m.Age.value == math.Trunc(m.Age.value) {
		age := int(m.Age.value)
		if models.ValidAge(age) {
			u.Age = &age
		}
	}
	if m.Gender != nil {
		if g, ok := models.ParseGender(*m.Gender); ok {
			u.Gender = &g
		}
	}
	if m.WeightKg.set && models.ValidWeight(m.WeightKg.value) {
		w := m.WeightKg.value
		u.WeightKg = &w
	}
	if m.HeightCm.set {
		if h, ok := models.NormalizeHeight(m.HeightCm.value); ok {
			u.HeightCm = &h
		}
	}
	if m.ActivityLevel != nil {
		if a, ok := models.ParseActivityLevel(*m.ActivityLevel); ok {
			u.ActivityLevel = &a
		}
	}
	if m.Goal != nil {
		if g, ok := models.ParseGoal(*m.Goal); ok {
			u.Goal = &g
		}
	}
	return u
}

func (e *FieldExtractor) extractWithModel(ctx context.Context, in ExtractionInput) Extraction {
	var out Extraction
	text := strings.TrimSpace(in.Message)

	for call := 0; call < MaxExtractionCalls && text != ""; call++ {
		raw, err := e.llm.CompleteJSON(ctx, extractionPrompt(text, in.LastQuestion, in.History))
		if err != nil {
			llmFailuresTotal.WithLabelValues("extract").Inc()
			e.log.Warn().Err(err).Int("call", call+1).Msg("extraction call failed")
			break
		}

		var m modelExtraction
		if err := json.Unmarshal(raw, &m); err != nil {
			llmFailuresTotal.WithLabelValues("extract").Inc()
			e.log.Warn().Err(err).Int("call", call+1).Msg("unparsable extraction")
			break
		}

		out.Fields.Merge(m.validated())
		if m.HasQuestion {
			out.HasQuestion = true
			if m.QuestionContext != nil && out.QuestionTopic == "" {
				out.QuestionTopic = strings.TrimSpace(*m.QuestionContext)
			}
		}

		rest := strings.TrimSpace(m.RemainingText)
		if len(rest) >= len(text) {
			break
		}
		text = rest
	}

	if out.HasQuestion && out.QuestionTopic == "" {
		out.QuestionTopic = in.Message
	}
	return out
}
