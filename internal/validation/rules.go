// Package validation holds the string rules shared by command payloads, admin API
// requests and domain inputs, on top of jellydator/validation.
package validation

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/missionhub/internal/errors"
)

var (
	// Command types, event types and capabilities: "checklist.task.status.set".
	dottedNamePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)
	// Hex destination hashes or callsigns.
	identityPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{1,128}$`)
)

func stringRule(code, message string, ok func(string) bool) validation.StringRule {
	return validation.NewStringRuleWithError(ok, validation.NewError(code, message))
}

var (
	// NoWhitespace rejects leading or trailing whitespace.
	NoWhitespace = stringRule("validation_no_whitespace", "must not contain leading or trailing whitespace",
		func(s string) bool { return strings.TrimSpace(s) == s })

	// NotBlank rejects strings made only of whitespace.
	NotBlank = stringRule("validation_not_blank", "must not be blank",
		func(s string) bool { return strings.TrimSpace(s) != "" })

	// DottedName accepts lower-case dot separated names.
	DottedName = stringRule("validation_dotted_name", "must be a lower-case dotted name",
		dottedNamePattern.MatchString)

	// Identity accepts a mesh identity.
	Identity = stringRule("validation_identity", "must be a valid identity",
		identityPattern.MatchString)

	// RFC3339 accepts timestamps such as "2026-10-19T08:00:00Z".
	RFC3339 = stringRule("validation_rfc3339", "must be an RFC 3339 timestamp",
		func(s string) bool {
			_, err := time.Parse(time.RFC3339, s)
			return err == nil
		})
)

// WrapValidationError turns a validation failure into ErrInvalidInput so routers and
// handlers classify it without knowing the validation library.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}
