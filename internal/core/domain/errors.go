package domain

import "errors"

var (
	ErrQuestionNotFound  = errors.New("question not found")
	ErrInvalidQuestionID = errors.New("invalid question id")
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrChoiceNotFound    = errors.New("choice not found for this question")
	ErrNoChoiceSelected  = errors.New("no choice selected")
	ErrUserNotFound      = errors.New("user not found")
	ErrNotStaff          = errors.New("user is not staff")
	ErrInvalidToken      = errors.New("invalid token")
)

// ValidationError carries per-field messages for a rejected question.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid question: " + e.first()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidQuestion
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) first() string {
	// map order is random; pick the smallest key so messages are stable
	var key string
	for k := range e.Fields {
		if key == "" || k < key {
			key = k
		}
	}
	if key == "" {
		return "unknown"
	}
	return key + ": " + e.Fields[key]
}
