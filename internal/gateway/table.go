package gateway

import (
	"net/url"
	"sort"
	"strings"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/config"
)

// Route maps a public path prefix onto an upstream service.  Target is the
// path prefix the upstream expects in place of Prefix.  Public routes never
// carry identity headers upstream even when a bearer is present.
type Route struct {
	Prefix   string
	Upstream string
	Target   string
	Public   bool
}

// DefaultRoutes is the public surface of the marketplace.
func DefaultRoutes(peers config.Peers) []Route {
	return []Route{
		{Prefix: "/api/auth", Upstream: peers.Identity, Target: "/auth", Public: true},
		{Prefix: "/api/catalog", Upstream: peers.Catalog, Target: "/"},
		{Prefix: "/api/providers", Upstream: peers.Provider, Target: "/providers"},
		{Prefix: "/api/demands", Upstream: peers.Demand, Target: "/demands"},
		{Prefix: "/api/messages", Upstream: peers.Message, Target: "/messages"},
	}
}

type entry struct {
	Route
	upstream *url.URL
}

// Table resolves request paths to routes.  Longest prefix wins and a prefix
// only matches on a path segment boundary, so /api/demandsx is not routed
// to /api/demands.
type Table struct {
	entries []entry
}

// NewTable validates the routes and orders them for matching.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{}
	for _, r := range routes {
		if !strings.HasPrefix(r.Prefix, "/") {
			return nil, errors.NotValidf("route prefix %q", r.Prefix)
		}
		u, err := url.Parse(r.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.NotValidf("upstream %q for %s", r.Upstream, r.Prefix)
		}
		r.Prefix = strings.TrimRight(r.Prefix, "/")
		if r.Target == "" {
			r.Target = "/"
		}
		t.entries = append(t.entries, entry{Route: r, upstream: u})
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i].Prefix) > len(t.entries[j].Prefix)
	})
	return t, nil
}

// Match returns the route for path and the path rewritten for the upstream.
func (t *Table) Match(path string) (Route, string, bool) {
	e, rewritten, ok := t.match(path)
	return e.Route, rewritten, ok
}

func (t *Table) match(path string) (entry, string, bool) {
	for _, e := range t.entries {
		if path != e.Prefix && !strings.HasPrefix(path, e.Prefix+"/") {
			continue
		}
		return e, rewrite(e.Target, strings.TrimPrefix(path, e.Prefix)), true
	}
	return entry{}, "", false
}

func rewrite(target, rest string) string {
	switch {
	case rest == "" || rest == "/":
		if target == "/" {
			return "/"
		}
		return target
	case target == "/":
		return rest
	default:
		return strings.TrimRight(target, "/") + rest
	}
}
