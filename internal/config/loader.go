package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment
// variables. Environment variables use the prefix with dots replaced by
// underscores, e.g. ARV_GENERATION_MODEL.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "arv"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "ARV"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return expandEnvVars(cfg), nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in secret-bearing and
// host configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Generation.Host = expandEnvString(cfg.Generation.Host)
	cfg.Generation.Model = expandEnvString(cfg.Generation.Model)
	cfg.Generation.Token = expandEnvString(cfg.Generation.Token)
	cfg.Tracker.APIBase = expandEnvString(cfg.Tracker.APIBase)
	cfg.Tracker.LinkBase = expandEnvString(cfg.Tracker.LinkBase)
	cfg.Tracker.Repository = expandEnvString(cfg.Tracker.Repository)
	cfg.Tracker.Token = expandEnvString(cfg.Tracker.Token)
	cfg.Store.Path = expandEnvString(cfg.Store.Path)
	return cfg
}

var (
	bracedVarPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	bareVarPattern   = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
// Unset variables are left as-is.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	s = bracedVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// setDefaults registers every known key so AutomaticEnv overrides are
// visible to Unmarshal even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("generation.host", "http://localhost:11434")
	v.SetDefault("generation.model", "")
	v.SetDefault("generation.token", "")
	v.SetDefault("generation.systemPrompt", "")
	v.SetDefault("generation.timeout", "180s")
	v.SetDefault("generation.maxAttempts", 2)
	v.SetDefault("generation.retryDelay", "2s")
	v.SetDefault("generation.contextWindow", 10240)
	v.SetDefault("generation.maxOutputTokens", 2048)

	v.SetDefault("review.mode", "pull_request")
	v.SetDefault("review.baseRef", "main")
	v.SetDefault("review.repositoryDir", ".")
	v.SetDefault("review.includePatterns", "")
	v.SetDefault("review.excludePatterns", "")
	v.SetDefault("review.maxDiffChars", 10000)
	v.SetDefault("review.pauseBetweenFiles", "2s")

	v.SetDefault("tracker.apiBase", "https://api.github.com")
	v.SetDefault("tracker.linkBase", "")
	v.SetDefault("tracker.repository", "")
	v.SetDefault("tracker.token", "")
	v.SetDefault("tracker.issueNumber", 0)
	v.SetDefault("tracker.maxAttempts", 3)
	v.SetDefault("tracker.retryDelay", "3s")

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "out/arv.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "")
}
