package usecase

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var leadEmailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("leademail", func(fl validator.FieldLevel) bool {
		return leadEmailPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("leadsource", func(fl validator.FieldLevel) bool {
		return entity.Source(fl.Field().String()).Valid()
	})
	v.RegisterValidation("leadstatus", func(fl validator.FieldLevel) bool {
		return entity.Status(fl.Field().String()).Valid()
	})
	v.RegisterValidation("leadpriority", func(fl validator.FieldLevel) bool {
		return entity.Priority(fl.Field().String()).Valid()
	})

	return v
}

// validateInput runs the struct tags and folds every failure into a single
// ValidationError.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: []FieldError{{Field: "input", Message: err.Error()}}}
	}

	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return "is required"
	case "leademail":
		return "must be a valid email"
	case "leadsource":
		return "must be one of " + joinValues(entity.Sources)
	case "leadstatus":
		return "must be one of " + joinValues(entity.Statuses)
	case "leadpriority":
		return "must be one of " + joinValues(entity.Priorities)
	case "gte":
		return "must not be negative"
	}
	return "is invalid"
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func normalizeCreateInput(in *CreateLeadInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	in.Tags = normalizeTags(in.Tags)
}

func normalizeUpdateInput(in *UpdateLeadInput) {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(in.Name)
	trim(in.Phone)
	trim(in.Company)
	trim(in.AssignedTo)
	if in.Email != nil {
		*in.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		in.Tags = &tags
	}
}

func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
