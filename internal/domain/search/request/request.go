package request

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/searchagent/internal/domain"
)

// Request limits.
const (
	// MaxQueryLength is the maximum allowed search query length in characters.
	MaxQueryLength = 4096
	// MaxIdentityLength is the maximum allowed caller identity length.
	MaxIdentityLength = 128
)

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9._:@|+\-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		return identityPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register identity validation: %v", err))
	}
	return v
}

// fields mirrors Request for struct-tag validation.
type fields struct {
	Query    string `validate:"required,max=4096"`
	Identity string `validate:"omitempty,max=128,identity"`
}

// Request is a validated search query. An empty identity means an anonymous caller.
type Request struct {
	query    string
	identity string
}

// New trims and validates the caller input.
// Returned errors wrap domain.ErrValidation.
func New(query, identity string) (Request, error) {
	r := Request{
		query:    strings.TrimSpace(query),
		identity: strings.TrimSpace(identity),
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Validate checks the request invariants. The zero Request is invalid.
func (r Request) Validate() error {
	err := validate.Struct(fields{Query: r.query, Identity: r.identity})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Field() {
	case "Query":
		if fe.Tag() == "max" {
			return fmt.Sprintf("search_query too long (max %d chars)", MaxQueryLength)
		}
		return "search_query is required"
	case "Identity":
		if fe.Tag() == "max" {
			return fmt.Sprintf("user_id too long (max %d chars)", MaxIdentityLength)
		}
		return "user_id is not a well-formed identifier"
	default:
		return fe.Error()
	}
}

// Query returns the trimmed query text.
func (r Request) Query() string { return r.query }

// Identity returns the caller identity, empty for anonymous callers.
func (r Request) Identity() string { return r.identity }

// Anonymous reports whether the request carries no identity.
func (r Request) Anonymous() bool { return r.identity == "" }
