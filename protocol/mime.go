// File: protocol/mime.go
// Author: momentics <momentics@gmail.com>

package protocol

import "strings"

// DefaultMimeType is served for unknown or missing extensions.
const DefaultMimeType = "application/text"

var mimeTypes = map[string]string{
	".htm":  "text/html",
	".html": "text/html",
	".php":  "text/html",
	".css":  "text/css",
	".txt":  "text/plain",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".swf":  "application/x-shockwave-flash",
	".flv":  "video/x-flv",
	".png":  "image/png",
	".jpe":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".svg":  "image/svg+xml",
	".svgz": "image/svg+xml",
}

// MimeType maps the extension of path (text from the last '.') to a
// content type, case-insensitively.
func MimeType(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return DefaultMimeType
	}
	if t, ok := mimeTypes[strings.ToLower(path[i:])]; ok {
		return t
	}
	return DefaultMimeType
}
