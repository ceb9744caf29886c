package questionnaire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingRequired is matched by MissingRequiredQuestionsError via errors.Is.
var ErrMissingRequired = errors.New("required questions unanswered")

// ErrUnknownQuestion is matched by UnknownQuestionsError via errors.Is.
var ErrUnknownQuestion = errors.New("answer refers to an unknown question")

// ErrSubmission is matched by SubmissionError via errors.Is.
var ErrSubmission = errors.New("questionnaire submission failed")

// MissingRequiredQuestionsError lists required questions without an answer.
type MissingRequiredQuestionsError struct {
	Indices []int
}

func (e *MissingRequiredQuestionsError) Error() string {
	return fmt.Sprintf("%d required questions unanswered: %s", len(e.Indices), joinInts(e.Indices))
}

// Is lets errors.Is match ErrMissingRequired.
func (e *MissingRequiredQuestionsError) Is(target error) bool {
	return target == ErrMissingRequired
}

// UnknownQuestionsError lists answer keys that are not valid bank indices.
type UnknownQuestionsError struct {
	Indices []int
}

func (e *UnknownQuestionsError) Error() string {
	return "unknown question indices: " + joinInts(e.Indices)
}

// Is lets errors.Is match ErrUnknownQuestion.
func (e *UnknownQuestionsError) Is(target error) bool {
	return target == ErrUnknownQuestion
}

// SubmissionError reports that the notifier could not deliver a submission.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return ErrSubmission.Error()
	}
	return ErrSubmission.Error() + ": " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrSubmission.
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmission
}

// PartialDeliveryError means the operator received the report but the respondent copy did not go out.
type PartialDeliveryError struct {
	Err error
}

func (e *PartialDeliveryError) Error() string {
	return "operator notified, respondent copy failed: " + e.Err.Error()
}

func (e *PartialDeliveryError) Unwrap() error {
	return e.Err
}

// OperatorReached reports whether err, returned by Submit, still got the report to the operator.
func OperatorReached(err error) bool {
	var partial *PartialDeliveryError
	return errors.As(err, &partial)
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}
