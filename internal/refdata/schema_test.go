package refdata

import (
	"errors"
	"os"
	"polcomp/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestSchema(t *testing.T) *Schema {
	t.Helper()
	data, err := os.ReadFile("testdata/demographics.json")
	require.NoError(t, err)
	s, err := ParseSchema(data)
	require.NoError(t, err)
	return s
}

func TestParseSchema(t *testing.T) {
	s := loadTestSchema(t)

	assert.Contains(t, s.Ages, 101)
	assert.Equal(t, []string{"CA-Liberal", "CA-Conservative", "US-Democrat", "US-Republican"}, s.PartyValues())
	assert.True(t, s.Allowed(model.FieldParty, "US-Democrat"))
	assert.False(t, s.Allowed(model.FieldParty, "Democrat"))

	_, err := ParseSchema([]byte(`{"age": ["x"]}`))
	assert.Error(t, err)

	_, err = ParseSchema([]byte(`{"country": ["US"]}`))
	assert.Error(t, err, "a schema without identities is unusable")
}

func TestValidateDemographics(t *testing.T) {
	s := loadTestSchema(t)

	tests := []struct {
		name    string
		in      model.Demographics
		want    model.Demographics
		wantErr string
	}{
		{
			name: "full valid profile",
			in: model.Demographics{
				Age: 34, Country: "US", Religion: "Atheist", Ethnicity: "White",
				Education: "Masters", Party: "US-Democrat", Identities: []string{"Feminist", ""},
			},
			want: model.Demographics{
				Age: 34, Country: "US", Religion: "Atheist", Ethnicity: "White",
				Education: "Masters", Party: "US-Democrat", Identities: []string{"Feminist"},
			},
		},
		{
			name: "blank fields and skipped age",
			in:   model.Demographics{Age: model.AgeSkip},
			want: model.Demographics{Age: model.AgeSkip, Identities: []string{}},
		},
		{
			name:    "age outside the allowed set",
			in:      model.Demographics{Age: 7},
			wantErr: "7 is not a valid age",
		},
		{
			name:    "party without country prefix",
			in:      model.Demographics{Age: model.AgeSkip, Party: "Democrat"},
			wantErr: "Democrat is not a valid party",
		},
		{
			name:    "unknown identity gets a hint",
			in:      model.Demographics{Age: model.AgeSkip, Identities: []string{"Feminst"}},
			wantErr: `did you mean "Feminist"?`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ValidateDemographics(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, model.ErrValidation))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateHowFound(t *testing.T) {
	s := loadTestSchema(t)

	assert.NoError(t, s.ValidateHowFound(""))
	assert.NoError(t, s.ValidateHowFound("Reddit"))

	err := s.ValidateHowFound("reddit.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reddit.com is not a valid how_found")
}

func TestValidateFilterset(t *testing.T) {
	s := loadTestSchema(t)

	ok := model.Filterset{
		Label: "a", Color: "b",
		Country: []string{"US"}, Party: []string{"CA-Liberal"}, Identities: []string{"Nationalist"},
	}
	assert.NoError(t, s.ValidateFilterset(ok, "filterset[0]"))

	bad := model.Filterset{Label: "a", Color: "b", Country: []string{"Atlantis"}, Education: []string{"PhD"}}
	err := s.ValidateFilterset(bad, "filterset[3]")
	require.Error(t, err)

	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "filterset[3]", ve.Entity)
	assert.Len(t, ve.Errors, 2)
}
