package models

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"zubi/internal/utils"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "masculino"
	case GenderFemale:
		return "feminino"
	}
	return ""
}

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// ParseGender accepts the answers people actually type to "Você é homem ou
// mulher? (H/M)" as well as the canonical values.
func ParseGender(s string) (Gender, bool) {
	switch utils.Normalize(s) {
	case "h", "homem", "masculino", "male", "macho":
		return GenderMale, true
	case "m", "mulher", "feminino", "female", "f":
		return GenderFemale, true
	}
	return "", false
}

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:  1.20,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.90,
}

var activityLabels = map[ActivityLevel]string{
	ActivitySedentary:  "sedentário",
	ActivityLight:      "leve",
	ActivityModerate:   "moderado",
	ActivityActive:     "ativo",
	ActivityVeryActive: "muito ativo",
}

func (a ActivityLevel) Label() string { return activityLabels[a] }

func (a ActivityLevel) Valid() bool {
	_, ok := activityMultipliers[a]
	return ok
}

// Multiplier returns the activity factor applied to the base BMR.
func (a ActivityLevel) Multiplier() float64 { return activityMultipliers[a] }

// ParseActivityLevel maps free text to an activity level. "muito ativo" is
// checked before "ativo" since the latter is a substring of the former.
func ParseActivityLevel(s string) (ActivityLevel, bool) {
	n := utils.Normalize(s)
	if n == "" {
		return "", false
	}
	switch {
	case strings.Contains(n, "muito ativ"), strings.Contains(n, "very_active"), strings.Contains(n, "very active"):
		return ActivityVeryActive, true
	case strings.Contains(n, "sedentari"), strings.Contains(n, "sedentary"), strings.Contains(n, "inativ"):
		return ActivitySedentary, true
	case strings.Contains(n, "leve"), strings.Contains(n, "light"):
		return ActivityLight, true
	case strings.Contains(n, "moderad"), strings.Contains(n, "moderate"):
		return ActivityModerate, true
	case strings.Contains(n, "ativo"), strings.Contains(n, "ativa"), n == "active":
		return ActivityActive, true
	}
	return "", false
}

type Goal string

const (
	GoalWeightLoss  Goal = "weight_loss"
	GoalMuscleGain  Goal = "muscle_gain"
	GoalMaintenance Goal = "maintenance"
)

// Fixed calorie offsets applied to the daily expenditure per goal.
var goalOffsets = map[Goal]float64{
	GoalWeightLoss:  -500,
	GoalMuscleGain:  300,
	GoalMaintenance: 0,
}

// Protein grams per kilogram of body weight per goal.
var goalProteinPerKg = map[Goal]float64{
	GoalWeightLoss:  1.8,
	GoalMuscleGain:  2.0,
	GoalMaintenance: 1.6,
}

func (g Goal) Label() string {
	switch g {
	case GoalWeightLoss:
		return "perda de peso"
	case GoalMuscleGain:
		return "ganho de massa muscular"
	case GoalMaintenance:
		return "manutenção"
	}
	return ""
}

func (g Goal) Valid() bool {
	_, ok := goalOffsets[g]
	return ok
}

// CalorieOffset returns the kcal added to the daily expenditure for this goal.
func (g Goal) CalorieOffset() float64 { return goalOffsets[g] }

func ParseGoal(s string) (Goal, bool) {
	n := utils.Normalize(s)
	if n == "" {
		return "", false
	}
	switch {
	case utils.ContainsAny(n, "weight_loss", "perda", "perder", "emagrec", "secar"):
		return GoalWeightLoss, true
	case utils.ContainsAny(n, "muscle_gain", "massa", "muscul", "ganhar", "ganho", "hipertrofia"):
		return GoalMuscleGain, true
	case utils.ContainsAny(n, "maintenance", "manuten", "manter", "mant"):
		return GoalMaintenance, true
	}
	return "", false
}

// Field names one of the seven intake fields.
type Field string

const (
	FieldName          Field = "name"
	FieldAge           Field = "age"
	FieldGender        Field = "gender"
	FieldWeight        Field = "weight"
	FieldHeight        Field = "height"
	FieldActivityLevel Field = "activity_level"
	FieldGoal          Field = "goal"
)

// FieldOrder is the canonical completion order; the next question always
// targets the first absent field in this order.
var FieldOrder = []Field{
	FieldName,
	FieldAge,
	FieldGender,
	FieldWeight,
	FieldHeight,
	FieldActivityLevel,
	FieldGoal,
}

func (f Field) Label() string {
	switch f {
	case FieldName:
		return "nome"
	case FieldAge:
		return "idade"
	case FieldGender:
		return "sexo"
	case FieldWeight:
		return "peso"
	case FieldHeight:
		return "altura"
	case FieldActivityLevel:
		return "nível de atividade física"
	case FieldGoal:
		return "objetivo"
	}
	return string(f)
}

var namePattern = regexp.MustCompile(`^[\p{L}\s'-]+$`)

func ValidName(name string) bool {
	clean := strings.Join(strings.Fields(name), " ")
	n := len([]rune(clean))
	if n < 2 || n > 100 {
		return false
	}
	return namePattern.MatchString(clean)
}

func ValidAge(age int) bool { return age > 0 && age < 120 }

func ValidWeight(kg float64) bool { return kg >= 20 && kg <= 300 }

func ValidHeight(cm float64) bool { return cm >= 100 && cm <= 250 }

// NormalizeHeight converts an extracted height to centimeters. Values in
// [1.4, 2.2] are meters, values ValidHeight accepts are already centimeters,
// and anything else is rejected.
func NormalizeHeight(v float64) (float64, bool) {
	switch {
	case IsMeterHeight(v):
		return math.Round(v * 100), true
	case ValidHeight(v):
		return v, true
	}
	return 0, false
}

// IsMeterHeight reports a height written in meters, e.g. 1.75.
func IsMeterHeight(v float64) bool { return v >= 1.4 && v <= 2.2 }

// Profile is the biometric profile collected during intake. A field is
// present once it holds a value that passes its validator.
type Profile struct {
	Name          string        `json:"name,omitempty"`
	Age           int           `json:"age,omitempty"`
	Gender        Gender        `json:"gender,omitempty"`
	WeightKg      float64       `json:"weight_kg,omitempty"`
	HeightCm      float64       `json:"height_cm,omitempty"`
	ActivityLevel ActivityLevel `json:"activity_level,omitempty"`
	Goal          Goal          `json:"goal,omitempty"`
}

// ProfileUpdate is a partial profile; nil fields were not supplied.
type ProfileUpdate struct {
	Name          *string        `json:"name,omitempty"`
	Age           *int           `json:"age,omitempty"`
	Gender        *Gender        `json:"gender,omitempty"`
	WeightKg      *float64       `json:"weight_kg,omitempty"`
	HeightCm      *float64       `json:"height_cm,omitempty"`
	ActivityLevel *ActivityLevel `json:"activity_level,omitempty"`
	Goal          *Goal          `json:"goal,omitempty"`
}

func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Age == nil && u.Gender == nil && u.WeightKg == nil &&
		u.HeightCm == nil && u.ActivityLevel == nil && u.Goal == nil
}

// Merge copies the fields set in other over u.
func (u *ProfileUpdate) Merge(other ProfileUpdate) {
	if other.Name != nil {
		u.Name = other.Name
	}
	if other.Age != nil {
		u.Age = other.Age
	}
	if other.Gender != nil {
		u.Gender = other.Gender
	}
	if other.WeightKg != nil {
		u.WeightKg = other.WeightKg
	}
	if other.HeightCm != nil {
		u.HeightCm = other.HeightCm
	}
	if other.ActivityLevel != nil {
		u.ActivityLevel = other.ActivityLevel
	}
	if other.Goal != nil {
		u.Goal = other.Goal
	}
}

// Has reports whether the field is set in the update.
func (u ProfileUpdate) Has(f Field) bool {
	switch f {
	case FieldName:
		return u.Name != nil
	case FieldAge:
		return u.Age != nil
	case FieldGender:
		return u.Gender != nil
	case FieldWeight:
		return u.WeightKg != nil
	case FieldHeight:
		return u.HeightCm != nil
	case FieldActivityLevel:
		return u.ActivityLevel != nil
	case FieldGoal:
		return u.Goal != nil
	}
	return false
}

// Has reports whether the field is present, i.e. passes its validator.
func (p Profile) Has(f Field) bool {
	switch f {
	case FieldName:
		return ValidName(p.Name)
	case FieldAge:
		return ValidAge(p.Age)
	case FieldGender:
		return p.Gender.Valid()
	case FieldWeight:
		return ValidWeight(p.WeightKg)
	case FieldHeight:
		return ValidHeight(p.HeightCm)
	case FieldActivityLevel:
		return p.ActivityLevel.Valid()
	case FieldGoal:
		return p.Goal.Valid()
	}
	return false
}

func (p Profile) IsComplete() bool {
	return len(p.MissingFields()) == 0
}

func (p Profile) IsEmpty() bool {
	for _, f := range FieldOrder {
		if p.Has(f) {
			return false
		}
	}
	return true
}

// MissingFields lists the absent fields in canonical order.
func (p Profile) MissingFields() []Field {
	var missing []Field
	for _, f := range FieldOrder {
		if !p.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// NextMissingField returns the first absent field in canonical order.
func (p Profile) NextMissingField() (Field, bool) {
	missing := p.MissingFields()
	if len(missing) == 0 {
		return "", false
	}
	return missing[0], true
}

// Apply merges every valid value of u into the profile and returns the fields
// that were accepted. Invalid values are dropped silently.
func (p *Profile) Apply(u ProfileUpdate) []Field {
	var applied []Field
	if u.Name != nil && ValidName(*u.Name) {
		p.Name = strings.Join(strings.Fields(*u.Name), " ")
		applied = append(applied, FieldName)
	}
	if u.Age != nil && ValidAge(*u.Age) {
		p.Age = *u.Age
		applied = append(applied, FieldAge)
	}
	if u.Gender != nil && u.Gender.Valid() {
		p.Gender = *u.Gender
		applied = append(applied, FieldGender)
	}
	if u.WeightKg != nil && ValidWeight(*u.WeightKg) {
		p.WeightKg = *u.WeightKg
		applied = append(applied, FieldWeight)
	}
	if u.HeightCm != nil && ValidHeight(*u.HeightCm) {
		p.HeightCm = *u.HeightCm
		applied = append(applied, FieldHeight)
	}
	if u.ActivityLevel != nil && u.ActivityLevel.Valid() {
		p.ActivityLevel = *u.ActivityLevel
		applied = append(applied, FieldActivityLevel)
	}
	if u.Goal != nil && u.Goal.Valid() {
		p.Goal = *u.Goal
		applied = append(applied, FieldGoal)
	}
	return applied
}

// BMI returns weight / height² rounded to one decimal.
func (p Profile) BMI() (float64, error) {
	if !p.Has(FieldWeight) || !p.Has(FieldHeight) {
		return 0, fmt.Errorf("weight and height are required to compute BMI")
	}
	heightInMeters := p.HeightCm / 100.0
	bmi := p.WeightKg / (heightInMeters * heightInMeters)
	return math.Round(bmi*10) / 10, nil
}

// BaseBMR returns the resting energy expenditure before the activity factor.
func (p Profile) BaseBMR() (float64, error) {
	for _, f := range []Field{FieldWeight, FieldHeight, FieldAge, FieldGender} {
		if !p.Has(f) {
			return 0, fmt.Errorf("%s is required to compute BMR", f)
		}
	}
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Gender == GenderMale {
		return base + 5, nil
	}
	return base - 161, nil
}

// DailyExpenditure returns the BMR scaled by the activity multiplier.
func (p Profile) DailyExpenditure() (float64, error) {
	base, err := p.BaseBMR()
	if err != nil {
		return 0, err
	}
	if !p.ActivityLevel.Valid() {
		return 0, fmt.Errorf("activity_level is required to compute daily expenditure")
	}
	return base * p.ActivityLevel.Multiplier(), nil
}

// CalorieTarget returns the daily expenditure adjusted by the goal offset.
func (p Profile) CalorieTarget() (float64, error) {
	tdee, err := p.DailyExpenditure()
	if err != nil {
		return 0, err
	}
	if !p.Goal.Valid() {
		return 0, fmt.Errorf("goal is required to compute the calorie target")
	}
	return tdee + p.Goal.CalorieOffset(), nil
}

type Targets struct {
	BMI              float64 `json:"bmi"`
	BaseBMR          float64 `json:"base_bmr"`
	DailyExpenditure float64 `json:"daily_expenditure"`
	Calories         float64 `json:"calories"`
	ProteinG         float64 `json:"protein_g"`
	CarbsG           float64 `json:"carbs_g"`
	FatG             float64 `json:"fat_g"`
}

// Targets computes every derived metric of a complete profile.
func (p Profile) Targets() (Targets, error) {
	if !p.IsComplete() {
		return Targets{}, fmt.Errorf("profile is incomplete: missing %v", p.MissingFields())
	}
	bmi, _ := p.BMI()
	base, _ := p.BaseBMR()
	tdee, _ := p.DailyExpenditure()
	kcal, _ := p.CalorieTarget()

	protein := goalProteinPerKg[p.Goal] * p.WeightKg
	fat := kcal * 0.25 / 9
	carbs := (kcal - protein*4 - fat*9) / 4
	if carbs < 0 {
		carbs = 0
	}

	return Targets{
		BMI:              bmi,
		BaseBMR:          base,
		DailyExpenditure: tdee,
		Calories:         kcal,
		ProteinG:         math.Round(protein),
		CarbsG:           math.Round(carbs),
		FatG:             math.Round(fat),
	}, nil
}

// Summary renders the profile and, when complete, its nutrition analysis.
func (p Profile) Summary() string {
	var b strings.Builder
	b.WriteString("Resumo do Paciente:\n")
	fmt.Fprintf(&b, "- Nome: %s\n", p.Name)
	fmt.Fprintf(&b, "- Idade: %d anos\n", p.Age)
	fmt.Fprintf(&b, "- Sexo: %s\n", p.Gender.Label())
	fmt.Fprintf(&b, "- Peso: %s kg\n", FormatNumber(p.WeightKg))
	fmt.Fprintf(&b, "- Altura: %s cm\n", FormatNumber(p.HeightCm))
	fmt.Fprintf(&b, "- Nível de Atividade: %s\n", p.ActivityLevel.Label())
	fmt.Fprintf(&b, "- Objetivo: %s\n", p.Goal.Label())

	t, err := p.Targets()
	if err != nil {
		return b.String()
	}
	b.WriteString("\nAnálise Nutricional:\n")
	fmt.Fprintf(&b, "- IMC: %.1f\n", t.BMI)
	fmt.Fprintf(&b, "- TMB: %.0f kcal\n", t.BaseBMR)
	fmt.Fprintf(&b, "- Gasto Total: %.0f kcal\n", t.DailyExpenditure)
	fmt.Fprintf(&b, "- Meta Calórica: %.0f kcal\n", t.Calories)
	fmt.Fprintf(&b, "- Macros: P: %.0fg | C: %.0fg | G: %.0fg\n", t.ProteinG, t.CarbsG, t.FatG)
	return b.String()
}

// FormatNumber prints v without trailing zeros: 70 -> "70", 72.5 -> "72.5".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
