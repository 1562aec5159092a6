// Package dashboard serves the embedded single-page UI that lists targets,
// their latest results and the changes since the previous run. It reads
// everything from the /api routes.
package dashboard

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed assets
var assets embed.FS

// Handler serves index.html at / and the other assets at their paths.
func Handler() http.Handler {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
