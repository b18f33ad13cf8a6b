package utilities

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NotBlank rejects strings made only of whitespace. Empty and nil values
// pass, so pair it with validation.Required or validation.NilOrNotEmpty.
var NotBlank = validation.Match(regexp.MustCompile(`\S`)).Error("cannot be blank")
