// Package config loads the options that drive a sourcing run.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Defaults applied when a key is not configured.
const (
	DefaultBranch  = "main"
	DefaultAPI     = "https://api.github.com/graphql"
	DefaultBackend = "json"
	DefaultDSN     = "github-contributors.json"

	configName = "contributors"
	envPrefix  = "CONTRIBUTORS"
)

// Default page locations and extensions.
var (
	DefaultPaths      = []string{"src/pages"}
	DefaultExtensions = []string{"md", "mdx"}
)

// Pages selects the files to annotate and how their paths map to repository paths.
type Pages struct {
	Root       string   `mapstructure:"root"`
	Paths      []string `mapstructure:"paths"`
	Extensions []string `mapstructure:"extensions"`
	Prefix     string   `mapstructure:"prefix"`
}

// Repo identifies the GitHub repository and the credentials used to query it.
type Repo struct {
	Token  string `mapstructure:"token"`
	Owner  string `mapstructure:"owner"`
	Name   string `mapstructure:"name"`
	Branch string `mapstructure:"branch"`
	API    string `mapstructure:"api"`
}

// Store selects the node store backend and its connection string.
type Store struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// Config is the complete configuration of the tool.
type Config struct {
	Pages Pages `mapstructure:"pages"`
	Repo  Repo  `mapstructure:"repo"`
	Store Store `mapstructure:"store"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Load reads the configuration. When file is empty the working directory and
// $XDG_CONFIG_HOME/github-contributors are searched for a contributors.* file;
// a missing file is not an error. Environment variables of the form
// CONTRIBUTORS_REPO_OWNER override file values.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "github-contributors"))
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	cfg.File = v.ConfigFileUsed()
	cfg.applyFallbacks()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pages.root", "")
	v.SetDefault("pages.paths", DefaultPaths)
	v.SetDefault("pages.extensions", DefaultExtensions)
	v.SetDefault("pages.prefix", "")
	v.SetDefault("repo.token", "")
	v.SetDefault("repo.owner", "")
	v.SetDefault("repo.name", "")
	v.SetDefault("repo.branch", DefaultBranch)
	v.SetDefault("repo.api", DefaultAPI)
	v.SetDefault("store.backend", DefaultBackend)
	v.SetDefault("store.dsn", DefaultDSN)
}

func (c *Config) applyFallbacks() {
	// Config files usually reference the token as ${GITHUB_TOKEN}.
	c.Repo.Token = strings.TrimSpace(os.ExpandEnv(c.Repo.Token))
	if c.Repo.Token == "" {
		c.Repo.Token = os.Getenv("GITHUB_TOKEN")
	}
	if c.Repo.Branch == "" {
		c.Repo.Branch = DefaultBranch
	}
	if c.Repo.API == "" {
		c.Repo.API = DefaultAPI
	}
	if len(c.Pages.Paths) == 0 {
		c.Pages.Paths = DefaultPaths
	}
	if len(c.Pages.Extensions) == 0 {
		c.Pages.Extensions = DefaultExtensions
	}
	for i, ext := range c.Pages.Extensions {
		c.Pages.Extensions[i] = strings.TrimPrefix(ext, ".")
	}
}

// HasRepository reports whether both owner and name are known.
func (c *Config) HasRepository() bool {
	return c.Repo.Owner != "" && c.Repo.Name != ""
}
