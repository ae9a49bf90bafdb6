package commerce_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/storefront/commerce"
)

func TestSizeList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want commerce.SizeList
	}{
		{"array", `["S","M"]`, commerce.SizeList{"S", "M"}},
		{"comma string", `"S, M ,L"`, commerce.SizeList{"S", "M", "L"}},
		{"empty string", `""`, commerce.SizeList{}},
		{"skips blanks", `"S,,M,"`, commerce.SizeList{"S", "M"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got commerce.SizeList
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSizeList_RejectsOtherTypes(t *testing.T) {
	var got commerce.SizeList
	assert.Error(t, json.Unmarshal([]byte(`42`), &got))
}

func TestTenantJSONHidesSecrets(t *testing.T) {
	out, err := json.Marshal(commerce.Tenant{ID: "t", Username: "ada", PasswordHash: "hash", Version: 3})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hash")
	assert.NotContains(t, string(out), "version")
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("handler: %w", commerce.ServerError("database read failed", cause))

	assert.Equal(t, commerce.KindServer, commerce.KindOf(wrapped))
	assert.Equal(t, "database read failed", commerce.Message(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.Equal(t, commerce.KindNotFound, commerce.KindOf(commerce.NotFound("x")))
	assert.Equal(t, commerce.KindUnauthorized, commerce.KindOf(commerce.Unauthorized("x")))
	assert.Equal(t, "mail a taken", commerce.Message(commerce.BadRequestf("mail %s taken", "a")))

	assert.Equal(t, commerce.KindServer, commerce.KindOf(cause))
	assert.Equal(t, "internal server error", commerce.Message(cause))
	assert.Equal(t, "conflict", commerce.KindConflict.String())
}
