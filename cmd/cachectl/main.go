// Command cachectl inspects and invalidates the API response cache.
//
//	cachectl invalidate product_list product_show_5
//	cachectl key GET '/products?page=2&limit=10'
//	cachectl routes product_show user_list
//	cachectl get 'product_list.catalog_Products__List|limit=10.page=2'
//	cachectl delete 'product_list.catalog_Products__List|limit=10.page=2'
//
// Flags can also be set from the environment: CACHECTL_REDIS_ADDR,
// CACHECTL_REDIS_DB, CACHECTL_PREFIX, CACHECTL_RULES.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/internal/catalog"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/cache"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/headers"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/httpcache"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/routing"
)

func main() {
	if err := newRootCmd(openRedisStore).Execute(); err != nil {
		os.Exit(1)
	}
}

// settings are the resolved flag and environment values.
type settings struct {
	RedisAddr string
	RedisDB   int
	Prefix    string
	Rules     string
}

// storeOpener opens the cache store and returns its cleanup function.
type storeOpener func(ctx context.Context, s settings) (cache.Store, func(), error)

func openRedisStore(ctx context.Context, s settings) (cache.Store, func(), error) {
	client := redis.NewClient(&redis.Options{Addr: s.RedisAddr, DB: s.RedisDB})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", s.RedisAddr, err)
	}
	return cache.NewRedisStore(client, cache.WithPrefix(s.Prefix)), func() { client.Close() }, nil
}

func newRootCmd(open storeOpener) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("cachectl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	load := func() settings {
		return settings{
			RedisAddr: v.GetString("redis-addr"),
			RedisDB:   v.GetInt("redis-db"),
			Prefix:    v.GetString("prefix"),
			Rules:     v.GetString("rules"),
		}
	}

	root := &cobra.Command{
		Use:          "cachectl",
		Short:        "Inspect and invalidate the API response cache",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("redis-addr", "localhost:6379", "Redis address")
	root.PersistentFlags().Int("redis-db", 0, "Redis database")
	root.PersistentFlags().String("prefix", cache.DefaultPrefix, "cache key prefix")
	root.PersistentFlags().String("rules", "", "cache rules file (default: built-in catalog rules)")
	if err := v.BindPFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	// withStore runs fn against an open store.
	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, store cache.Store) error) error {
		store, closeStore, err := open(cmd.Context(), load())
		if err != nil {
			return err
		}
		defer closeStore()
		return fn(cmd.Context(), store)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "invalidate TAG...",
			Short: "Remove every entry carrying any of the tags",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, store cache.Store) error {
					if err := store.InvalidateTags(ctx, args); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "invalidated %d tag(s): %s\n", len(args), strings.Join(args, ", "))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Show a cached entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, store cache.Store) error {
					entry, err := store.Get(ctx, args[0])
					if errors.Is(err, cache.ErrCacheMiss) {
						return fmt.Errorf("no entry for key %q", args[0])
					}
					if err != nil {
						return err
					}
					return printEntry(cmd, entry)
				})
			},
		},
		&cobra.Command{
			Use:   "delete KEY",
			Short: "Remove a single cached entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, store cache.Store) error {
					if err := store.Delete(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
					return nil
				})
			},
		},
		newKeyCmd(load),
		newRoutesCmd(load),
	)

	return root
}

// newKeyCmd computes the cache key and tags of a request without
// touching the store.
func newKeyCmd(load func() settings) *cobra.Command {
	var auth string

	cmd := &cobra.Command{
		Use:   "key METHOD TARGET",
		Short: "Print the cache key and tags of a catalog request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(load().Rules)
			if err != nil {
				return err
			}
			table := catalogTable()

			req := httptest.NewRequest(strings.ToUpper(args[0]), args[1], nil)
			if auth != "" {
				req.Header.Set("Authorization", auth)
			}

			key, err := cache.NewKeyGenerator(table, rules.PrivateRoutes()).Generate(req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "route: %s\n", key.Route.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "key:   %s\n", key.Value)
			fmt.Fprintf(cmd.OutOrStdout(), "tags:  %s\n", strings.Join(cache.TagsFor(req, key.Route), ", "))
			if invalidates := rules.For(key.Route.Name).Invalidates; len(invalidates) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "invalidates: %s\n", strings.Join(httpcache.InvalidationTags(req, key, rules.For(key.Route.Name)), ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&auth, "auth", "", "Authorization header value for private routes")
	return cmd
}

// newRoutesCmd lists the catalog routes with their cache rules.
func newRoutesCmd(load func() settings) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [NAME...]",
		Short: "List catalog routes and their cache rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(load().Rules)
			if err != nil {
				return err
			}
			table := catalogTable()

			routes := table.Routes()
			if len(args) > 0 {
				routes = routes[:0]
				for _, name := range args {
					route, ok := table.Lookup(name)
					if !ok {
						return fmt.Errorf("unknown route %q", name)
					}
					routes = append(routes, route)
				}
			}

			for _, route := range routes {
				fmt.Fprintf(cmd.OutOrStdout(), "%-15s %-6s %-16s %s\n",
					route.Name, route.Method, route.Pattern, describeRule(rules.For(route.Name)))
			}
			return nil
		},
	}
}

func describeRule(rule httpcache.Rule) string {
	var parts []string
	if rule.Cacheable {
		parts = append(parts, "cacheable")
	}
	if rule.Private {
		parts = append(parts, "private")
	}
	if len(rule.Invalidates) > 0 {
		parts = append(parts, "invalidates "+strings.Join(rule.Invalidates, ","))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// loadRules reads the rule file, or returns the built-in catalog rules.
func loadRules(path string) (httpcache.Rules, error) {
	if path == "" {
		return catalog.CacheRules(), nil
	}
	return httpcache.LoadRules(path)
}

// catalogTable registers the catalog routes on a table that is only used
// for resolution.
func catalogTable() *routing.Table {
	table := routing.NewTable()
	catalog.NewHandlers(catalog.NewRepository(nil), catalog.NewTokenAuthorizer(nil, ""),
		headers.NewPolicy(nil), time.Hour, zerolog.Nop()).Register(table)
	return table
}

// entryView is the printed form of an entry.
type entryView struct {
	Status       int                 `yaml:"status"`
	Tags         []string            `yaml:"tags"`
	Public       bool                `yaml:"public"`
	ETag         string              `yaml:"etag,omitempty"`
	LastModified string              `yaml:"last_modified,omitempty"`
	Expires      string              `yaml:"expires"`
	CachedAt     string              `yaml:"cached_at"`
	Headers      map[string][]string `yaml:"headers,omitempty"`
	BodyBytes    int                 `yaml:"body_bytes"`
}

func printEntry(cmd *cobra.Command, entry *cache.Entry) error {
	view := entryView{
		Status:    entry.StatusCode,
		Tags:      entry.Tags,
		Public:    entry.Public,
		ETag:      entry.ETag,
		Expires:   "never",
		CachedAt:  headers.FormatTime(entry.CachedAt),
		Headers:   entry.Headers,
		BodyBytes: len(entry.Data),
	}
	if !entry.LastModified.IsZero() {
		view.LastModified = headers.FormatTime(entry.LastModified)
	}
	if entry.HasExpiry() {
		view.Expires = headers.FormatTime(entry.Expires)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return enc.Close()
}
