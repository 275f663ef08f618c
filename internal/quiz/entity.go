package quiz

import (
	"time"

	"github.com/google/uuid"
	"github.com/mariakisialiova/itechart-quiz/internal/user"
	"gorm.io/gorm"
)

type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:250;not null;uniqueIndex" json:"name"`
}

type Question struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index" json:"category_id"`
	HTML       string    `gorm:"column:html;type:text;not null" json:"html"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"category,omitempty"`
	Choices  []Choice  `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"choices,omitempty"`
}

type Choice struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	HTML       string    `gorm:"column:html;type:text;not null" json:"html"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"is_correct"`
	Position   int       `gorm:"not null;default:0" json:"position"`
}

// QuizProfile is the per-user aggregate of quiz state.
type QuizProfile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TotalScore int       `gorm:"not null;default:0;index" json:"total_score"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User *user.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// AttemptedQuestion links a profile to a question it has been shown. It
// starts unanswered and is answered at most once.
type AttemptedQuestion struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	QuizProfileID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_profile_question" json:"quiz_profile_id"`
	QuestionID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_profile_question" json:"question_id"`
	SelectedChoiceID *uuid.UUID `gorm:"type:uuid" json:"selected_choice_id,omitempty"`
	IsCorrect        bool       `gorm:"not null;default:false" json:"is_correct"`
	AnsweredAt       *time.Time `json:"answered_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`

	QuizProfile    *QuizProfile `gorm:"foreignKey:QuizProfileID;constraint:OnDelete:CASCADE" json:"-"`
	Question       *Question    `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"question,omitempty"`
	SelectedChoice *Choice      `gorm:"foreignKey:SelectedChoiceID;constraint:OnDelete:SET NULL" json:"selected_choice,omitempty"`
}

func (a *AttemptedQuestion) Answered() bool {
	return a.SelectedChoiceID != nil
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

func (c *Choice) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (p *QuizProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (a *AttemptedQuestion) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Models lists the tables owned by this package in migration order.
func Models() []any {
	return []any{
		&Category{},
		&Question{},
		&Choice{},
		&QuizProfile{},
		&AttemptedQuestion{},
	}
}
