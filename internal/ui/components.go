// Package ui renders the HTML landing page served at the API root.
package ui

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Route is one API endpoint listed on the landing page.
type Route struct {
	Method      string
	Path        string
	Description string
}

// Layout renders a full HTML page with a title and body component.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<!DOCTYPE html><html lang=\"en\">")
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, "<head><meta charset=\"utf-8\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "<title>%s</title>", html.EscapeString(title))
		if err != nil {
			return err
		}
		// Minimal modern CSS framework (Pico.css) via CDN.
		_, err = io.WriteString(w, "<link rel=\"stylesheet\" href=\"https://unpkg.com/@picocss/pico@2/css/pico.min.css\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "</head>")
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, "<body><main class=\"container\">")
		if err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		_, err = io.WriteString(w, "</main></body></html>")
		return err
	})
}

// IndexPage renders the service name and the routes it serves.
func IndexPage(title string, routes []Route) templ.Component {
	return Layout(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<section><header><h1>%s</h1>", html.EscapeString(title))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<p>Image uploads and user profiles through pre-signed URLs. Health: <a href=\"/healthz\">/healthz</a></p></header>")
		if err != nil {
			return err
		}

		if len(routes) == 0 {
			_, err = io.WriteString(w, "<p>No routes registered.</p></section>")
			return err
		}

		_, err = io.WriteString(w, "<table><thead><tr><th>Method</th><th>Path</th><th>Description</th></tr></thead><tbody>")
		if err != nil {
			return err
		}

		for _, r := range routes {
			row := fmt.Sprintf("<tr><td><code>%s</code></td><td><code>%s</code></td><td>%s</td></tr>",
				html.EscapeString(r.Method), html.EscapeString(r.Path), html.EscapeString(r.Description))
			_, err = io.WriteString(w, row)
			if err != nil {
				return err
			}
		}

		_, err = io.WriteString(w, "</tbody></table></section>")
		return err
	}))
}
