package server

import (
	"html/template"
	"net/http"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); max-width: 32rem; }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0.25rem 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
        {{with .Detail}}<p><code>{{.}}</code></p>{{end}}
    </div>
</body>
</html>
`))

type page struct {
	Title   string
	Message string
	Detail  string
	Color   template.CSS
}

var (
	successPage = page{
		Title:   "✓ Authorization Successful",
		Message: "You can close this window and return to pictune.",
		Color:   "#1DB954",
	}
	consumedPage = page{
		Title:   "Nothing to do here",
		Message: "This authorization request has already been handled. You can close this window.",
		Color:   "#535353",
	}
)

func errorPage(detail string) page {
	return page{
		Title:   "✗ Authorization Failed",
		Message: "pictune did not receive access to your account. Return to the terminal and try again.",
		Detail:  detail,
		Color:   "#E22134",
	}
}

func writePage(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	pageTmpl.Execute(w, p)
}
