package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/go-playground/validator/v10"
)

var matNoPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/\-_.]{1,49}$`)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Validate performs struct tag validation and returns ValidationErrors on failure
func (v *Validator) Validate(s interface{}) error {
	return v.ValidateStruct(s)
}

// Business returns the business validator
func (v *Validator) Business() *BusinessValidator {
	return v.businessValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("approval_status", validateApprovalStatus)
	validate.RegisterValidation("review_decision", validateReviewDecision)
	validate.RegisterValidation("mat_no", validateMatNo)
	validate.RegisterValidation("notblank", validateNotBlank)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

func validateApprovalStatus(fl validator.FieldLevel) bool {
	return models.ApprovalStatus(fl.Field().String()).IsValid()
}

func validateReviewDecision(fl validator.FieldLevel) bool {
	status := models.ApprovalStatus(fl.Field().String())
	return status == models.ApprovalApproved || status == models.ApprovalRejected
}

func validateMatNo(fl validator.FieldLevel) bool {
	return matNoPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// IsMatNo reports whether value looks like a matriculation number.
func IsMatNo(value string) bool {
	return matNoPattern.MatchString(strings.TrimSpace(value))
}
