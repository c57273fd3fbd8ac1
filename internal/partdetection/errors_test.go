package partdetection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/partdetect/internal/errors"
)

func TestErrorKindsSurviveWrapping(t *testing.T) {
	t.Parallel()

	base := newError(KindRelabelImageFull, "", nil)
	wrapped := fmt.Errorf("upload: %w", base)

	assert.Equal(t, KindRelabelImageFull, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindRelabelImageFull))
	assert.ErrorIs(t, wrapped, &Error{Kind: KindRelabelImageFull})
	assert.NotErrorIs(t, wrapped, &Error{Kind: KindNotFound})
	assert.Equal(t, Kind(""), KindOf(errors.NewStd("plain")))
	assert.Contains(t, base.Error(), "relabel images are full")
}

func TestErrorCategories(t *testing.T) {
	t.Parallel()

	tests := map[Kind]errors.ErrorCategory{
		KindConfigureWithoutInferenceModule: errors.CategoryPrecondition,
		KindConfigureWithoutProject:         errors.CategoryPrecondition,
		KindInferenceModuleUnreachable:      errors.CategoryInference,
		KindProbThresholdNotInteger:         errors.CategoryValidation,
		KindRelabelConfidenceOutOfRange:     errors.CategoryValidation,
		KindRelabelImageFull:                errors.CategoryLimit,
		KindNotFound:                        errors.CategoryNotFound,
	}
	for kind, want := range tests {
		ee := errors.New(newError(kind, "", nil)).Build()
		assert.Equal(t, want, ee.Category, string(kind))
	}
}
