package quiz

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventPublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// AttemptEvaluated is published after an answer has been scored.
type AttemptEvaluated struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	UserID     uuid.UUID `json:"user_id"`
	QuestionID uuid.UUID `json:"question_id"`
	ChoiceID   uuid.UUID `json:"choice_id"`
	Correct    bool      `json:"correct"`
	TotalScore int       `json:"total_score"`
	AnsweredAt time.Time `json:"answered_at"`
}
