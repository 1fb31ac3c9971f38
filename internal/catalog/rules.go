package catalog

import "github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/httpcache"

// CacheRules returns the built-in cache rules of the catalog routes.
// configs/cache-rules.yaml holds the same table for CACHE_RULES_FILE.
func CacheRules() httpcache.Rules {
	return httpcache.Rules{
		"product_list":   {Cacheable: true},
		"product_show":   {Cacheable: true},
		"product_create": {Invalidates: []string{"product_list"}},
		"product_update": {Invalidates: []string{"product_list", "product_show"}},
		"product_delete": {Invalidates: []string{"product_list", "product_show"}},
		"customer_list":  {Cacheable: true},
		"customer_show":  {Cacheable: true},
		"user_list":      {Cacheable: true, Private: true},
		"user_show":      {Cacheable: true, Private: true},
		"user_create":    {Invalidates: []string{"user_list"}},
		"user_delete":    {Invalidates: []string{"user_list", "user_show"}},
	}
}
