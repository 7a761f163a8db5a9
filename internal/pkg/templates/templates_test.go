package templates

import (
	"bytes"
	"strings"
	"testing"
)

func TestTemplatesCompile(t *testing.T) {

	templates := NewHTMLTemplate()
	if templates.templates == nil {
		t.Error("getTemplates() returned nil")
	}
}

func TestSignInMessage(t *testing.T) {

	testCases := []struct {
		name               string
		allowedGroups      []string
		expectedSubstrings []string
	}{
		{
			name:               "no group restriction",
			allowedGroups:      nil,
			expectedSubstrings: []string{"<p>You may sign in with your cluster account.</p>"},
		},
		{
			name:          "single allowed group",
			allowedGroups: []string{"notebook-users"},
			expectedSubstrings: []string{
				"Access is limited to members of these groups:<br>",
				"<b>notebook-users</b>",
			},
		},
		{
			name:          "multiple allowed groups",
			allowedGroups: []string{"notebook-users", "notebook-admins"},
			expectedSubstrings: []string{
				"Access is limited to members of these groups:<br>",
				"<b>notebook-users</b>, <b>notebook-admins</b>",
			},
		},
	}

	templates := NewHTMLTemplate()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			ctx := struct {
				ProviderName  string
				AllowedGroups []string
			}{
				ProviderName:  "OpenShift",
				AllowedGroups: tc.allowedGroups,
			}
			templates.ExecuteTemplate(buf, "sign_in_message.html", ctx)
			result := buf.String()

			for _, substring := range tc.expectedSubstrings {
				if !strings.Contains(result, substring) {
					t.Errorf("substring %#v not found in rendered template:\n%s", substring, result)
				}
			}
		})
	}
}
