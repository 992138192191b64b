package config

import (
	"os"
	"strings"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentStaging     = "staging"
	EnvironmentProduction  = "production"
)

const (
	DefaultConfigPath = "config/config.yml"
	DefaultShardsPath = "config/pair_shards.yml"
)

// environment describes one APP_ENV value. Deployed environments read their
// own config and shard files and refuse to start without a shard file.
type environment struct {
	name     string
	aliases  []string
	deployed bool
}

var environments = []environment{
	{name: EnvironmentDevelopment, aliases: []string{"dev", "local"}},
	{name: EnvironmentStaging, aliases: []string{"stag", "stage", "stagging"}, deployed: true},
	{name: EnvironmentProduction, aliases: []string{"prod", "producation"}, deployed: true},
}

func lookupEnvironment(name string) (environment, bool) {
	for _, e := range environments {
		if e.name == name {
			return e, true
		}
		for _, a := range e.aliases {
			if a == name {
				return e, true
			}
		}
	}
	return environment{}, false
}

// AppEnvironment returns APP_ENV resolved through the alias table. Unset
// means development; unknown values are returned lowercased.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		return EnvironmentDevelopment
	}
	if e, ok := lookupEnvironment(env); ok {
		return e.name
	}
	return env
}

// IsProductionLike reports whether env must fail on a missing shard file
// instead of falling back to a single connection on the default interface.
func IsProductionLike(env string) bool {
	e, ok := lookupEnvironment(env)
	return ok && e.deployed
}

// envPath turns config/config.yml into config/config.production.yml.
func envPath(defaultPath, env string) string {
	ext := ".yml"
	base := strings.TrimSuffix(defaultPath, ext)
	return base + "." + env + ext
}

// resolvePath keeps an explicitly chosen path. The default path, or nothing,
// resolves to the deployed environment's own file.
func resolvePath(path, defaultPath string) string {
	if path == "" {
		path = defaultPath
	}
	env := AppEnvironment()
	if !IsProductionLike(env) {
		return path
	}
	if own := envPath(defaultPath, env); path == defaultPath || path == own {
		return own
	}
	return path
}

func ResolveConfigPath(path string) string {
	return resolvePath(path, DefaultConfigPath)
}

func ResolveShardsPath(path string) string {
	return resolvePath(path, DefaultShardsPath)
}
