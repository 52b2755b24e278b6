// Package schemas validates profile documents before they are stored.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed recruiter.json
	recruiterSchema string
	//go:embed applicant.json
	applicantSchema string
)

var (
	recruiterCompiled = mustCompile(recruiterSchema)
	applicantCompiled = mustCompile(applicantSchema)
)

func mustCompile(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile profile schema: %v", err))
	}
	return s
}

// ValidateRecruiter checks a recruiter profile value (any JSON-marshalable Go value).
func ValidateRecruiter(doc any) error {
	return validate(recruiterCompiled, doc)
}

// ValidateApplicant checks an applicant profile value.
func ValidateApplicant(doc any) error {
	return validate(applicantCompiled, doc)
}

func validate(schema *gojsonschema.Schema, doc any) error {
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return &ValidationError{Problems: msgs}
}

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "profile validation failed: " + strings.Join(e.Problems, "; ")
}
