package api

import (
	"bytes"
	"html/template"
	"net/http"
)

// scalarVersion pins the API reference bundle so the docs page does not
// change under a running observer.
const scalarVersion = "1.25"

// scalarConfig is rendered into the page as the Scalar configuration object.
type scalarConfig struct {
	Theme              string         `json:"theme"`
	Layout             string         `json:"layout"`
	DarkMode           bool           `json:"darkMode"`
	HideDownloadButton bool           `json:"hideDownloadButton"`
	HideModels         bool           `json:"hideModels"`
	MetaData           scalarMetaData `json:"metaData"`
}

type scalarMetaData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var scalarPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}} - API Documentation</title>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<style>body { margin: 0; padding: 0; }</style>
</head>
<body>
	<script id="api-reference" data-url="{{.SpecURL}}"></script>
	<script>
		var configuration = {{.Config}};
		configuration.servers = [{ url: window.location.origin, description: 'This observer' }];
		document.getElementById('api-reference').dataset.configuration = JSON.stringify(configuration);
	</script>
	<script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference@{{.Version}}"></script>
</body>
</html>`))

// ScalarHandler serves the API reference UI for the spec at specURL.
// The servers list is always the origin the page was loaded from.
func ScalarHandler(specURL, title, description string) http.Handler {
	var buf bytes.Buffer
	err := scalarPage.Execute(&buf, struct {
		Title   string
		SpecURL string
		Version string
		Config  scalarConfig
	}{
		Title:   title,
		SpecURL: specURL,
		Version: scalarVersion,
		Config: scalarConfig{
			Theme:              "default",
			Layout:             "modern",
			DarkMode:           true,
			HideDownloadButton: false,
			HideModels:         true,
			MetaData:           scalarMetaData{Title: title, Description: description},
		},
	})
	page := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			http.Error(w, "render docs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	})
}
