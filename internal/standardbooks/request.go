package standardbooks

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// requestRootElement wraps the body data of write operations.
const requestRootElement = "data"

// Request is an immutable descriptor for one API call. Neither path nor
// method is validated here; the operation methods on Client are responsible
// for passing sensible values.
type Request struct {
	Path   string
	Method string
	Params map[string]string
}

// NewRequest builds a request descriptor. An empty method defaults to GET.
func NewRequest(path, method string, params map[string]string) Request {
	if method == "" {
		method = http.MethodGet
	}
	return Request{
		Path:   path,
		Method: method,
		Params: params,
	}
}

// hasBody reports whether the request transmits its parameters in the body.
// GET and HEAD requests carry them in the query string instead.
func (r Request) hasBody() bool {
	m := strings.ToUpper(r.Method)
	return m != http.MethodGet && m != http.MethodHead
}

// Body renders the form body: one "key=value&" pair per line, keys sorted
// for a stable wire image. Values go out verbatim under the
// application/x-www-form-urlencoded content type, the way the Standard
// Books endpoint expects them.
func (r Request) Body() string {
	if !r.hasBody() {
		return ""
	}

	keys := make([]string, 0, len(r.Params))
	for key := range r.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(r.Params[key])
		b.WriteString("&\n")
	}
	return b.String()
}

// Query renders the parameters as a URL query string for GET/HEAD requests.
func (r Request) Query() string {
	if r.hasBody() || len(r.Params) == 0 {
		return ""
	}
	values := url.Values{}
	for key, value := range r.Params {
		values.Set(key, value)
	}
	return values.Encode()
}
