package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInformational(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"already in review", ErrAlreadyInReview, true},
		{"nothing to submit wrapped", fmt.Errorf("%w: no rejected documents", ErrNothingToSubmit), true},
		{"validation", ErrorValidation, false},
		{"prerequisite", fmt.Errorf("%w: missing passport", ErrPrerequisiteNotMet), false},
		{"nil", nil, false},
		{"joined", errors.Join(errors.New("x"), ErrAlreadyInReview), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInformational(tt.err))
		})
	}
}
