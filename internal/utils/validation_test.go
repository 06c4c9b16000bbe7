package utils_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyrooms-api/internal/utils"
)

type samplePayload struct {
	Title string   `json:"title" validate:"required,min=3,max=100"`
	Email string   `json:"email" validate:"required,email"`
	Tags  []string `json:"tags" validate:"max=2,dive,max=5"`
	Kind  string   `json:"type" validate:"omitempty,oneof=note topic"`
}

func TestValidationFieldsUsesJSONNames(t *testing.T) {
	validate := utils.NewValidator()

	err := validate.Struct(samplePayload{Title: "ab", Email: "nope", Tags: []string{"a", "b", "c"}, Kind: "poem"})
	require.Error(t, err)

	fields := utils.ValidationFields(err)
	require.Equal(t, "title must be at least 3 characters", fields["title"])
	require.Equal(t, "email must be a valid email address", fields["email"])
	require.Equal(t, "tags must be at most 2 items", fields["tags"])
	require.Equal(t, "type must be one of: note, topic", fields["type"])
}

func TestValidationFieldsReportsNestedElements(t *testing.T) {
	err := utils.NewValidator().Struct(samplePayload{Title: "Valid", Email: "a@b.co", Tags: []string{"toolong"}})
	require.Error(t, err)

	fields := utils.ValidationFields(err)
	require.Equal(t, "tags[0] must be at most 5 characters", fields["tags[0]"])
}

func TestValidationFieldsIgnoresOtherErrors(t *testing.T) {
	require.Nil(t, utils.ValidationFields(errors.New("boom")))
}
