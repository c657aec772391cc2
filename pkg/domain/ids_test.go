package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "schoolpay/pkg/domain-errors"
)

func TestNewIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewUserID(), NewUserID())
	assert.NotEqual(t, NewSchoolID(), NewSchoolID())
}

func TestParseUserID(t *testing.T) {
	original := NewUserID()

	parsed, err := ParseUserID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParseUserID_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not a uuid", "student-42"},
		{"nil uuid", "00000000-0000-0000-0000-000000000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseUserID(tc.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseSchoolID(t *testing.T) {
	original := NewSchoolID()

	parsed, err := ParseSchoolID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = ParseSchoolID("nope")
	require.Error(t, err)
}

func TestIDJSONRoundTrip(t *testing.T) {
	type payload struct {
		User   UserID   `json:"user"`
		School SchoolID `json:"school"`
	}
	original := payload{User: NewUserID(), School: NewSchoolID()}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), original.User.String())

	var decoded payload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestIsNil(t *testing.T) {
	assert.True(t, UserID{}.IsNil())
	assert.True(t, SchoolID{}.IsNil())
	assert.False(t, NewUserID().IsNil())
}
