package cache

import (
	"net/http"
	"strings"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/routing"
)

// MakeTag derives the base invalidation tag of a route: its first two
// underscore-delimited tokens ("product_show_id" -> "product_show"), or the
// whole name when it has fewer than two.
func MakeTag(routeName string) string {
	parts := strings.SplitN(routeName, "_", 3)
	if len(parts) < 2 {
		return routeName
	}
	return parts[0] + "_" + parts[1]
}

// AddResourceSuffix narrows a "show" tag to a single resource
// ("product_show" + "42" -> "product_show_42"). Other tags, and show tags
// without an id, are returned unchanged.
func AddResourceSuffix(tag, id string) string {
	if id == "" || !strings.Contains(tag, "show") {
		return tag
	}
	return tag + "_" + id
}

// ResourceID returns the "id" parameter of a request: the path parameter if
// the route has one, else the query parameter.
func ResourceID(r *http.Request, route routing.Route) string {
	if id := route.Param("id"); id != "" {
		return id
	}
	return r.URL.Query().Get("id")
}

// TagsFor returns the tags a response for the given route is stored under.
func TagsFor(r *http.Request, route routing.Route) []string {
	return []string{AddResourceSuffix(MakeTag(route.Name), ResourceID(r, route))}
}
