package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testSubmissionMeta struct {
	ID      string `json:"id" validate:"required,pluginid"`
	Version string `json:"version" validate:"required,semver"`
	Name    string `json:"name" validate:"required,min=3,max=100"`
}

func TestValidateStruct_Success(t *testing.T) {
	req := testSubmissionMeta{
		ID:      "word-count",
		Version: "1.2.3",
		Name:    "Word Count",
	}

	assert.NoError(t, ValidateStruct(req))
}

func TestValidateStruct_RequiredFields(t *testing.T) {
	req := testSubmissionMeta{}

	err := ValidateStruct(req)
	assert.Error(t, err)
}

func TestValidateRequest_FieldMessages(t *testing.T) {
	req := testSubmissionMeta{
		ID:      "Word Count!",
		Version: "not-a-version",
		Name:    "ok",
	}

	errs := ValidateRequest(req)
	assert.Contains(t, errs, "id")
	assert.Contains(t, errs, "version")
}

func TestSemverValidator(t *testing.T) {
	valid := testSubmissionMeta{ID: "a-b", Version: "2.0.0-beta.1+build.5", Name: "abc"}
	assert.NoError(t, ValidateStruct(valid))

	invalid := testSubmissionMeta{ID: "a-b", Version: "v1.0", Name: "abc"}
	assert.Error(t, ValidateStruct(invalid))
}

func TestPluginIDValidator(t *testing.T) {
	valid := testSubmissionMeta{ID: "word_count-2", Version: "1.0.0", Name: "abc"}
	assert.NoError(t, ValidateStruct(valid))

	invalid := testSubmissionMeta{ID: "Word Count", Version: "1.0.0", Name: "abc"}
	assert.Error(t, ValidateStruct(invalid))
}
