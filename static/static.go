// Package static embeds assets the panel can serve without a static dir.
package static

import _ "embed"

// NotFoundHTML is served with status 404 when the configured static dir has
// no 404.html of its own.
//
//go:embed 404.html
var NotFoundHTML []byte
