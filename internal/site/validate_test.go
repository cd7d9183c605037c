package site

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDraft(t *testing.T) {
	cases := []struct {
		name   string
		draft  Draft
		fields []string
	}{
		{name: "valid", draft: validDraft},
		{name: "company optional", draft: Draft{Name: "A", Email: "a@b.co", Message: "hi"}},
		{name: "empty", draft: Draft{}, fields: []string{"name", "email", "message"}},
		{name: "whitespace", draft: Draft{Name: "  ", Email: "a@b.co", Message: "\n"}, fields: []string{"name", "message"}},
		{name: "bad email", draft: Draft{Name: "A", Email: "a@", Message: "hi"}, fields: []string{"email"}},
		{name: "display name email", draft: Draft{Name: "A", Email: "Ada <a@b.co>", Message: "hi"}, fields: []string{"email"}},
		{name: "too long", draft: Draft{Name: "A", Email: "a@b.co", Message: strings.Repeat("x", maxFieldLength+1)}, fields: []string{"message"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDraft(tc.draft)
			if len(tc.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Fields, len(tc.fields))
			for _, f := range tc.fields {
				require.Contains(t, vErr.Fields, f)
			}
		})
	}
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := ValidateDraft(Draft{})
	require.EqualError(t, err, "site: invalid draft fields [email, message, name]")
}
