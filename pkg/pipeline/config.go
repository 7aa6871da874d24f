package pipeline

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/postermill/pkg/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvCacheBackend = "POSTERMILL_CACHE_BACKEND"
	EnvCacheDir     = "POSTERMILL_CACHE_DIR"
	EnvRedisURL     = "POSTERMILL_REDIS_URL"
	EnvOutput       = "POSTERMILL_OUTPUT"
)

// DefaultEnvFiles are the dotenv files LoadEnv reads when given none.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadConfig decodes a TOML configuration file. Unknown keys are an error so
// that typos do not silently fall back to defaults.
func LoadConfig(path string) (Options, error) {
	var opts Options
	md, err := toml.DecodeFile(path, &opts)
	if err != nil {
		if os.IsNotExist(err) {
			return Options{}, errors.Wrap(errors.ErrCodeNotFound, err, "config file %s", path)
		}
		return Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Options{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return opts, nil
}

// LoadEnv loads dotenv files into the process environment. Missing files are
// ignored and variables already set are kept.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv fills unset options from the environment.
func (o *Options) ApplyEnv() {
	setFromEnv(&o.Cache.Backend, EnvCacheBackend)
	setFromEnv(&o.Cache.Dir, EnvCacheDir)
	setFromEnv(&o.Cache.RedisURL, EnvRedisURL)
	setFromEnv(&o.Output, EnvOutput)
}

func setFromEnv(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
