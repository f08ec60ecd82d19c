package utils

import (
	"strings"
	"testing"

	"diagramsync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type joinRequest struct {
	Identity    string `json:"identity" validate:"required"`
	Room        string `json:"room" validate:"required"`
	DisplayName string `json:"displayName" validate:"max=8"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      joinRequest
		wantCode   string
		wantFields []string
	}{
		{name: "valid", input: joinRequest{Identity: "alice", Room: "P1"}},
		{name: "missing room", input: joinRequest{Identity: "alice"}, wantCode: errors.CodeMissingFields, wantFields: []string{"room"}},
		{name: "missing both", input: joinRequest{}, wantCode: errors.CodeMissingFields, wantFields: []string{"identity", "room"}},
		{name: "name too long", input: joinRequest{Identity: "alice", Room: "P1", DisplayName: strings.Repeat("a", 9)}, wantCode: errors.CodeMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)

			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err, ""))
			if tt.wantFields != nil {
				appErr := errors.GetAppError(err)
				require.NotNil(t, appErr)
				assert.Equal(t, tt.wantFields, appErr.Details["fields"])
			}
		})
	}
}

func TestValidateStruct_MessageUsesJSONNames(t *testing.T) {
	err := ValidateStruct(joinRequest{Identity: "alice", Room: "P1", DisplayName: "far too long"})

	_, message := errors.Public(err)
	assert.Equal(t, "displayName must be at most 8", message)
}
