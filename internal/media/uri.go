package media

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// URI is a parsed source or sink locator, e.g.
//
//	raw:///data/clip.rvf
//	test://?w=640&h=480&fmt=RGB24&fps=30
//	/data/clip.rvf            (scheme defaults to "raw")
type URI struct {
	Scheme string
	Path   string
	Params url.Values
}

// ParseURI splits a locator into scheme, path and query parameters.
// A bare filesystem path is treated as a raw file locator.
func ParseURI(s string) (URI, error) {
	if s == "" {
		return URI{}, errors.New("empty uri")
	}

	if !strings.Contains(s, "://") {
		return URI{Scheme: "raw", Path: s, Params: url.Values{}}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return URI{}, errors.Wrapf(err, "invalid uri %q", s)
	}

	path := u.Path
	if u.Opaque != "" {
		path = u.Opaque
	}
	// file://host-less paths keep a leading slash; hosts are not used.
	if u.Host != "" {
		path = u.Host + path
	}

	return URI{
		Scheme: u.Scheme,
		Path:   path,
		Params: u.Query(),
	}, nil
}

// IntParam returns the named query parameter as an int, or def when absent.
func (u URI) IntParam(name string, def int) int {
	raw := u.Params.Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// StringParam returns the named query parameter, or def when absent.
func (u URI) StringParam(name, def string) string {
	raw := u.Params.Get(name)
	if raw == "" {
		return def
	}
	return raw
}
