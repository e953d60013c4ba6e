// Package validation holds every input rule of the service in one place.
// Rules are declared as struct tags on the input types below and checked by
// go-playground/validator; callers get back a flat list of violations
// instead of a response written on their behalf.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"piazza/models"
)

// Length limits, in characters, live only in the validate tags below.
type PostInput struct {
	Title      string         `json:"title" validate:"required,max=200"`
	Content    string         `json:"content" validate:"required,max=2000"`
	Topic      models.Topic   `json:"topic" validate:"required,topic"`
	Expiration *time.Duration `json:"expiration" validate:"omitnil,gt=0"`
}

type CommentInput struct {
	Text string `json:"text" validate:"required,max=500"`
}

type SignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Validator struct {
	validate *validator.Validate
	topics   models.Taxonomy
}

func New(topics models.Taxonomy) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("topic", func(fl validator.FieldLevel) bool {
		return topics.Contains(models.Topic(fl.Field().String()))
	})
	return &Validator{validate: v, topics: topics}
}

// Check returns every violation in input, or nil when it is valid.
func (v *Validator) Check(input any) []models.Violation {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []models.Violation{{Rule: "invalid", Message: err.Error()}}
	}
	out := make([]models.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, models.Violation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: v.message(fe),
		})
	}
	return out
}

// Error wraps Check into a *models.ValidationError.
func (v *Validator) Error(input any) error {
	if violations := v.Check(input); len(violations) > 0 {
		return &models.ValidationError{Violations: violations}
	}
	return nil
}

// Topics lists the configured taxonomy in order.
func (v *Validator) Topics() []models.Topic {
	return v.topics.Topics()
}

// Topic validates a topic on its own, for query paths.
func (v *Validator) Topic(topic models.Topic) error {
	if !v.topics.Contains(topic) {
		return fmt.Errorf("%w: %q", models.ErrInvalidTopic, topic)
	}
	return nil
}

func (v *Validator) message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "gt":
		return field + " must be a positive duration"
	case "topic":
		names := make([]string, 0, len(v.topics.Topics()))
		for _, t := range v.topics.Topics() {
			names = append(names, string(t))
		}
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(names, ", "))
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
