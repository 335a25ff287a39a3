package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ResumeFile is an uploaded resume as received from the client.
type ResumeFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Submission is a referral request before it has been scored or stored.
type Submission struct {
	CandidateName  string              `json:"candidate_name" validate:"required"`
	CandidateEmail string              `json:"candidate_email" validate:"required,email"`
	RoleTitle      string              `json:"role_title" validate:"required"`
	JobIDs         []string            `json:"job_ids" validate:"required,min=1"`
	WhyFit         string              `json:"why_fit" validate:"required"`
	Context        RelationshipContext `json:"context" validate:"required,relationship_context"`
	Resume         *ResumeFile         `json:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("relationship_context", func(fl validator.FieldLevel) bool {
		return RelationshipContext(fl.Field().String()).Valid()
	})
	return v
}

// Validate trims text fields and checks the submission. The resume is checked
// first so a request without one is rejected before anything else happens.
func (s *Submission) Validate() error {
	if s.Resume == nil || len(s.Resume.Data) == 0 {
		return &ValidationError{Field: "resume", Message: "Resume is required", Err: ErrResumeRequired}
	}

	s.CandidateName = strings.TrimSpace(s.CandidateName)
	s.CandidateEmail = strings.TrimSpace(s.CandidateEmail)
	s.RoleTitle = strings.TrimSpace(s.RoleTitle)
	s.WhyFit = strings.TrimSpace(s.WhyFit)
	s.Context = RelationshipContext(strings.TrimSpace(string(s.Context)))

	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return &ValidationError{Field: "submission", Message: err.Error()}
	}
	if !HasIdentifier(s.JobIDs) {
		return &ValidationError{Field: "job_ids", Message: "must contain at least one job id"}
	}
	return nil
}

func fieldError(fe validator.FieldError) *ValidationError {
	msg := "is invalid"
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "min":
		msg = "must contain at least one job id"
	case "relationship_context":
		names := make([]string, len(RelationshipContexts))
		for i, c := range RelationshipContexts {
			names[i] = string(c)
		}
		msg = fmt.Sprintf("must be one of: %s", strings.Join(names, ", "))
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
