package partdetection

import (
	"fmt"

	"github.com/tphakala/partdetect/internal/errors"
)

// Kind identifies a part detection failure. Values are stable and exposed to
// API clients.
type Kind string

const (
	KindConfigureWithoutInferenceModule Kind = "ConfigureWithoutInferenceModule"
	KindConfigureWithoutProject         Kind = "ConfigureWithoutProject"
	KindInferenceModuleUnreachable      Kind = "InferenceModuleUnreachable"
	KindProbThresholdNotInteger         Kind = "ProbThresholdNotInteger"
	KindProbThresholdOutOfRange         Kind = "ProbThresholdOutOfRange"
	KindRelabelConfidenceOutOfRange     Kind = "RelabelConfidenceOutOfRange"
	KindRelabelImageFull                Kind = "RelabelImageFull"
	KindNotFound                        Kind = "NotFound"
)

var defaultDetails = map[Kind]string{
	KindConfigureWithoutInferenceModule: "please configure an inference module and cameras first",
	KindConfigureWithoutProject:         "please configure a project first",
	KindInferenceModuleUnreachable:      "inference module unreachable",
	KindProbThresholdNotInteger:         "prob_threshold must be an integer",
	KindProbThresholdOutOfRange:         "prob_threshold must be between 0 and 100",
	KindRelabelConfidenceOutOfRange:     "confidence out of the configured accuracy range",
	KindRelabelImageFull:                "relabel images are full for this part",
	KindNotFound:                        "not found",
}

// Error is a classified part detection failure.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func newError(kind Kind, detail string, cause error) *Error {
	if detail == "" {
		detail = defaultDetails[kind]
	}
	return &Error{Kind: kind, Detail: detail, Err: cause}
}

func errorf(kind Kind, format string, args ...any) *Error {
	return newError(kind, fmt.Sprintf(format, args...), nil)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ErrorCategory implements errors.CategorizedError.
func (e *Error) ErrorCategory() errors.ErrorCategory {
	switch e.Kind {
	case KindConfigureWithoutInferenceModule, KindConfigureWithoutProject:
		return errors.CategoryPrecondition
	case KindInferenceModuleUnreachable:
		return errors.CategoryInference
	case KindProbThresholdNotInteger, KindProbThresholdOutOfRange, KindRelabelConfidenceOutOfRange:
		return errors.CategoryValidation
	case KindRelabelImageFull:
		return errors.CategoryLimit
	case KindNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryGeneric
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var pdErr *Error
	if errors.As(err, &pdErr) {
		return pdErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
