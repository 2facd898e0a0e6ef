package models

import (
	"time"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// DateLayout keys the per-day buckets of a conversation.
const DateLayout = "2006-01-02"

// MaxQuestionContexts bounds the rolling window of asked questions.
const MaxQuestionContexts = 5

type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UsefulContext records which answer filled which field.
type UsefulContext struct {
	Field    Field  `json:"field"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionContext is a question the assistant asked and the field(s) it targets.
// The combined height and weight question targets two fields.
type QuestionContext struct {
	Fields   []Field   `json:"fields"`
	Question string    `json:"question"`
	AskedAt  time.Time `json:"asked_at"`
}

// Targets reports whether the question asks for f.
func (q QuestionContext) Targets(f Field) bool {
	for _, qf := range q.Fields {
		if qf == f {
			return true
		}
	}
	return false
}

// DayLog is one calendar day of a conversation.
type DayLog struct {
	Messages         []Message       `json:"messages"`
	Meals            []MealEntry     `json:"meals"`
	UsefulContexts   []UsefulContext `json:"useful_contexts"`
	MessageCount     int             `json:"message_count"`
	FirstInteraction bool            `json:"first_interaction"`
}

func NewDayLog() *DayLog {
	return &DayLog{FirstInteraction: true}
}

// Conversation is everything known about one phone number.
type Conversation struct {
	Phone          string             `json:"phone"`
	Profile        Profile            `json:"profile"`
	Days           map[string]*DayLog `json:"days"`
	Questions      []QuestionContext  `json:"questions"`
	IntakeComplete bool               `json:"intake_complete"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func NewConversation(phone string, now time.Time) *Conversation {
	return &Conversation{
		Phone:     phone,
		Days:      map[string]*DayLog{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Day returns the bucket for the given date, creating it lazily.
func (c *Conversation) Day(date string) *DayLog {
	if c.Days == nil {
		c.Days = map[string]*DayLog{}
	}
	day, ok := c.Days[date]
	if !ok {
		day = NewDayLog()
		c.Days[date] = day
	}
	return day
}

// PruneBefore drops every day bucket dated before cutoff.
func (c *Conversation) PruneBefore(cutoff string) int {
	removed := 0
	for date := range c.Days {
		if date < cutoff {
			delete(c.Days, date)
			removed++
		}
	}
	return removed
}

// RememberQuestion appends q and evicts the oldest entries beyond the window.
func (c *Conversation) RememberQuestion(q QuestionContext) {
	c.Questions = append(c.Questions, q)
	if over := len(c.Questions) - MaxQuestionContexts; over > 0 {
		c.Questions = append([]QuestionContext(nil), c.Questions[over:]...)
	}
}

func (c *Conversation) LastQuestion() (QuestionContext, bool) {
	if len(c.Questions) == 0 {
		return QuestionContext{}, false
	}
	return c.Questions[len(c.Questions)-1], true
}

// IntakeState is the position of a conversation in the intake state machine.
type IntakeState string

const (
	StateGreeting   IntakeState = "GREETING"
	StateCollecting IntakeState = "COLLECTING"
	StateComplete   IntakeState = "COMPLETE"
	StateJournaling IntakeState = "JOURNALING"
)

// Reply is the assistant's answer to one inbound message, delivered part by
// part with a pacing delay in between.
type Reply struct {
	Parts []string `json:"parts"`
}

func NewReply(parts ...string) Reply {
	r := Reply{}
	for _, p := range parts {
		r.Add(p)
	}
	return r
}

// Add appends a non-empty part.
func (r *Reply) Add(part string) {
	if part == "" {
		return
	}
	r.Parts = append(r.Parts, part)
}

// Text joins every part into one message.
func (r Reply) Text() string {
	out := ""
	for i, p := range r.Parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}
