package ui_test

import (
	"strings"
	"testing"

	"gallery/internal/ui"

	"github.com/stretchr/testify/require"
)

func TestIndexPage(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	err := ui.IndexPage("Gallery <API>", []ui.Route{
		{Method: "POST", Path: "/api/uploads/pre-signed-url", Description: "Upload & sign"},
	}).Render(t.Context(), &b)
	require.NoError(t, err)

	out := b.String()
	require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	require.Contains(t, out, "<title>Gallery &lt;API&gt;</title>")
	require.Contains(t, out, "<code>/api/uploads/pre-signed-url</code>")
	require.Contains(t, out, "Upload &amp; sign")
	require.True(t, strings.HasSuffix(out, "</main></body></html>"))
}

func TestIndexPageWithoutRoutes(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	require.NoError(t, ui.IndexPage("Gallery", nil).Render(t.Context(), &b))
	require.Contains(t, b.String(), "No routes registered.")
}
