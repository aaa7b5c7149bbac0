package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"ana@example.com", true},
		{"", false},
		{"not-an-email", false},
		{"Ana <ana@example.com>", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "email", ve.Field)
		})
	}
}

func TestNormalizeSkills(t *testing.T) {
	got, err := NormalizeSkills("teach_skills", []string{" Go ", "", "go", "React", "  "})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "React"}, got)
}

func TestNormalizeSkillsLimits(t *testing.T) {
	_, err := NormalizeSkills("learn_skills", []string{strings.Repeat("x", MaxSkillLength+1)})
	require.Error(t, err)

	many := make([]string, 0, MaxSkills+1)
	for i := 0; i <= MaxSkills; i++ {
		many = append(many, strings.Repeat("s", i+1))
	}
	_, err = NormalizeSkills("learn_skills", many)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "learn_skills", ve.Field)
}

func TestSplitSkills(t *testing.T) {
	assert.Equal(t, []string{}, SplitSkills("  "))
	assert.Equal(t, []string{"JavaScript", " React"}, SplitSkills("JavaScript, React"))
}

func TestValidatePasswordAndBio(t *testing.T) {
	assert.Error(t, ValidatePassword("12345"))
	assert.NoError(t, ValidatePassword("123456"))
	assert.NoError(t, ValidateBio("hello"))
	assert.Error(t, ValidateBio(strings.Repeat("b", MaxBioLength+1)))
	assert.Error(t, ValidateName(strings.Repeat("n", MaxNameLength+1)))
}
