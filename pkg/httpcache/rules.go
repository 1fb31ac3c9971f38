package httpcache

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Rule is the caching behavior of one route.
type Rule struct {
	// Cacheable enables lookup and storage for GET requests on the route
	Cacheable bool `yaml:"cacheable"`

	// Private scopes cache keys to the caller's Authorization header
	Private bool `yaml:"private"`

	// Invalidates lists the tags dropped after a successful mutation.
	// Tags containing "show" get the request's resource id appended.
	Invalidates []string `yaml:"invalidates"`
}

// DefaultRule applies to routes missing from the rule table.
var DefaultRule = Rule{Cacheable: true}

// Rules maps route names to their caching rule.
type Rules map[string]Rule

// For returns the rule of a route, or DefaultRule.
func (r Rules) For(routeName string) Rule {
	if rule, ok := r[routeName]; ok {
		return rule
	}
	return DefaultRule
}

// PrivateRoutes returns the names of the private routes, sorted.
func (r Rules) PrivateRoutes() []string {
	var names []string
	for name, rule := range r {
		if rule.Private {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// rulesFile is the on-disk layout:
//
//	routes:
//	  product_list:
//	    cacheable: true
//	  product_update:
//	    invalidates: [product_list, product_show]
type rulesFile struct {
	Routes Rules `yaml:"routes"`
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (Rules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse cache rules: %w", err)
	}
	if file.Routes == nil {
		file.Routes = Rules{}
	}
	for name, rule := range file.Routes {
		for _, tag := range rule.Invalidates {
			if tag == "" {
				return nil, fmt.Errorf("parse cache rules: route %s: empty invalidation tag", name)
			}
		}
	}
	return file.Routes, nil
}

// LoadRules reads a YAML rule table from path.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache rules: %w", err)
	}
	return ParseRules(data)
}
