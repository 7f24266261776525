package app

import (
	"log/slog"
	"mime"
)

// staticMimeTypes covers the assets under web/static. Slim images have no
// /etc/mime.types, so the file server would otherwise sniff them as text.
var staticMimeTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
}

func init() {
	for ext, typ := range staticMimeTypes {
		if mimeTypeFor(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Warn("register static mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}

func mimeTypeFor(ext string) string {
	return mime.TypeByExtension(ext)
}
