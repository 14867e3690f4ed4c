// Package cookiejar implements a minimal cookie store for the SSO handshake.
//
// Unlike net/http/cookiejar it deliberately ignores cookie attributes
// (Path, Domain, Expires, Secure): the negotiation only needs name=value
// pairs keyed by the exact request hostname, and the federation's cookies
// live for the lifetime of one login attempt anyway.
package cookiejar

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

type cookie struct {
	name  string
	value string
}

// Jar stores cookies per hostname, preserving insertion order.
// Safe for concurrent use.
type Jar struct {
	mu    sync.Mutex
	hosts map[string][]cookie
}

// New returns an empty jar.
func New() *Jar {
	return &Jar{hosts: make(map[string][]cookie)}
}

// Absorb parses all Set-Cookie values in header and stores them under the
// hostname of u. A cookie with the same name overwrites the previous value
// in place, keeping its original position.
func (j *Jar) Absorb(u *url.URL, header http.Header) {
	values := header.Values("Set-Cookie")
	if len(values) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	host := u.Hostname()
	for _, v := range values {
		pair, _, _ := strings.Cut(v, ";")
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		j.set(host, name, strings.TrimSpace(value))
	}
}

func (j *Jar) set(host, name, value string) {
	list := j.hosts[host]
	for i := range list {
		if list[i].name == name {
			list[i].value = value
			return
		}
	}
	j.hosts[host] = append(list, cookie{name: name, value: value})
}

// HeaderFor renders a Cookie header value ("name=value; ...") for the
// hostname of u, or an empty string if no cookies are stored for it.
func (j *Jar) HeaderFor(u *url.URL) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	list := j.hosts[u.Hostname()]
	if len(list) == 0 {
		return ""
	}
	pairs := make([]string, len(list))
	for i, c := range list {
		pairs[i] = c.name + "=" + c.value
	}
	return strings.Join(pairs, "; ")
}

// Export returns the cookies stored for host as "name=value" strings, in
// insertion order. The result is a copy.
func (j *Jar) Export(host string) []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	list := j.hosts[host]
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.name + "=" + c.value
	}
	return out
}
