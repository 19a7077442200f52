// Package dam provides the HTTP client for a Sling-style content repository.
// The repository only supports whole-object GET, and create/delete of assets
// through a dedicated API prefix; there is no partial update.
package dam

import (
	"fmt"
	"strings"
)

// Endpoint describes one remote repository. It is shared read-only across
// all file handles of a share and is never mutated by this package.
type Endpoint struct {
	Host      string
	Port      int
	Secure    bool
	BasePath  string // content path prefix for GET, empty when paths are absolute
	AssetAPI  string // assets API prefix for POST/DELETE, e.g. "/api/assets"
	AssetRoot string // sub-path under which assets live, e.g. "/content/dam"
	Username  string
	Password  string
}

// URL builds the content URL for a repository path.
func (e *Endpoint) URL(path string) string {
	return e.origin() + e.BasePath + path
}

// AssetURL builds the assets API URL for a repository path.
func (e *Endpoint) AssetURL(path string) string {
	return e.origin() + e.AssetAPI + path
}

// InAssetTree reports whether path falls under the asset root, i.e. whether
// the assets create/delete API applies to it.
func (e *Endpoint) InAssetTree(path string) bool {
	if e.AssetRoot == "" {
		return false
	}
	return path == e.AssetRoot || strings.HasPrefix(path, e.AssetRoot+"/")
}

func (e *Endpoint) origin() string {
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}
	if e.Port == 0 {
		return fmt.Sprintf("%s://%s", scheme, e.Host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, e.Host, e.Port)
}
