// Package config loads closuregen settings from flags, the environment and
// an optional .env file. Environment values become flag defaults, so an
// explicit flag always wins.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"closuregen/internal/modules"
	"closuregen/internal/publish"
)

type Config struct {
	Env        string
	Addr       string
	Dir        string
	ParseCache int
	Modules    modules.Config
	Publish    PublishConfig
}

type PublishConfig struct {
	Enabled bool
	Store   publish.Config
}

// Load parses args into fs. Unknown .env files are ignored.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	cfg := &Config{Env: env}

	fs.StringVar(&cfg.Addr, "addr", resolveAddr(), "dev server listen address")
	fs.StringVar(&cfg.Dir, "dir", firstNonEmpty(strings.TrimSpace(os.Getenv("CLOSUREGEN_DIR")), "."), "directory of JSON documents served as modules")
	fs.StringVar(&cfg.Modules.Prefix, "prefix", firstNonEmpty(strings.TrimSpace(os.Getenv("CLOSUREGEN_MODULE_PREFIX")), modules.DefaultPrefix), "virtual module id prefix")

	entries, err := envInt("CLOSUREGEN_CACHE_ENTRIES", modules.DefaultCacheEntries)
	if err != nil {
		return nil, err
	}
	fs.IntVar(&cfg.Modules.CacheEntries, "cache-entries", entries, "settled modules kept in memory")
	bytes, err := envInt("CLOSUREGEN_CACHE_BYTES", 0)
	if err != nil {
		return nil, err
	}
	fs.IntVar(&cfg.Modules.CacheBytes, "cache-bytes", bytes, "byte budget for settled module text (0 = unlimited)")
	ttl, err := envDuration("CLOSUREGEN_CACHE_TTL", modules.DefaultCacheTTL)
	if err != nil {
		return nil, err
	}
	fs.DurationVar(&cfg.Modules.CacheTTL, "cache-ttl", ttl, "how long settled modules stay loadable")
	parse, err := envInt("CLOSUREGEN_PARSE_CACHE", 512)
	if err != nil {
		return nil, err
	}
	fs.IntVar(&cfg.ParseCache, "parse-cache", parse, "parsed function sources kept in memory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Publish = loadPublishConfig(env)
	return cfg, nil
}

func resolveAddr() string {
	if addr := strings.TrimSpace(os.Getenv("CLOSUREGEN_ADDR")); addr != "" {
		return addr
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if strings.HasPrefix(port, ":") {
			return port
		}
		return ":" + port
	}
	return ":5174"
}

func loadPublishConfig(env string) PublishConfig {
	endpoint := resolvePublishEndpoint(env)
	return PublishConfig{
		Enabled: endpoint != "",
		Store: publish.Config{
			Endpoint:  endpoint,
			Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("CLOSUREGEN_S3_REGION")), "us-east-1"),
			AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("CLOSUREGEN_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
			SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("CLOSUREGEN_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
			Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("CLOSUREGEN_S3_BUCKET")), "closuregen-modules"),
			Prefix:    strings.TrimSpace(os.Getenv("CLOSUREGEN_S3_PREFIX")),
			UseSSL:    resolvePublishUseSSL(env),
		},
	}
}

func resolvePublishEndpoint(env string) string {
	if v := strings.TrimSpace(os.Getenv("CLOSUREGEN_S3_ENDPOINT")); v != "" {
		return v
	}
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("CLOSUREGEN_MINIO_ENDPOINT"))
	}
	return ""
}

func resolvePublishUseSSL(env string) bool {
	raw := strings.TrimSpace(os.Getenv("CLOSUREGEN_S3_USE_SSL"))
	if raw == "" {
		return !strings.EqualFold(strings.TrimSpace(env), "local")
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
