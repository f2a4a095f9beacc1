// Package config resolves settings from flags, environment variables and
// an optional TOML config file, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Token    string
	Username string
	APIURL   string

	DataDir     string
	CatalogPath string

	Basis       string
	MatchArtist string

	Verbose   bool
	UserAgent string
}

type Requirements struct {
	RequireToken    bool
	RequireUsername bool
	RequireCatalog  bool
}

func FromFlags(args []string, req Requirements) (Config, error) {
	fs := flag.NewFlagSet("stardust", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var c Config
	var configPath, envFile string
	fs.StringVar(&configPath, "config", "", "Config file (default: XDG config dir)")
	fs.StringVar(&envFile, "env-file", "", "Load environment variables from this file")
	fs.StringVar(&c.Token, "token", "", "ListenBrainz user token (or set STARDUST_TOKEN)")
	fs.StringVar(&c.Username, "user", "", "ListenBrainz username (or set STARDUST_USER)")
	fs.StringVar(&c.APIURL, "api-url", "", "ListenBrainz API base URL")
	fs.StringVar(&c.DataDir, "data-dir", "", "Data directory (default: XDG data dir)")
	fs.StringVar(&c.CatalogPath, "catalog", "", "Catalog JSON file (or set STARDUST_CATALOG)")
	fs.StringVar(&c.Basis, "basis", "", "Projection basis: DAY, WEEK, MONTH or YEAR")
	fs.StringVar(&c.MatchArtist, "match-artist", "", "Classify by artist-name heuristic instead of strict identifiers")
	fs.BoolVar(&c.Verbose, "verbose", false, "Verbose logging")
	fs.StringVar(&c.UserAgent, "user-agent", "stardust/0", "HTTP User-Agent")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	k, err := loadFile(configPath)
	if err != nil {
		return Config{}, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	resolve := func(flagName *string, name, env, key string) {
		if set[name] || *flagName != "" {
			return
		}
		if v := os.Getenv(env); v != "" {
			*flagName = v
			return
		}
		*flagName = k.String(key)
	}
	resolve(&c.Token, "token", "STARDUST_TOKEN", "token")
	resolve(&c.Username, "user", "STARDUST_USER", "user")
	resolve(&c.APIURL, "api-url", "STARDUST_API_URL", "api_url")
	resolve(&c.DataDir, "data-dir", "STARDUST_DATA_DIR", "data_dir")
	resolve(&c.CatalogPath, "catalog", "STARDUST_CATALOG", "catalog")
	resolve(&c.Basis, "basis", "STARDUST_BASIS", "basis")
	resolve(&c.MatchArtist, "match-artist", "STARDUST_MATCH_ARTIST", "match_artist")

	if req.RequireToken && c.Token == "" {
		return Config{}, errors.New("missing token: set STARDUST_TOKEN or pass --token")
	}
	if req.RequireUsername && c.Username == "" {
		return Config{}, errors.New("missing username: set STARDUST_USER or pass --user")
	}
	if req.RequireCatalog && c.CatalogPath == "" {
		return Config{}, errors.New("missing catalog: set STARDUST_CATALOG or pass --catalog")
	}

	if c.DataDir == "" {
		c.DataDir = filepath.Join(xdg.DataHome, "stardust")
	}
	if c.Basis == "" {
		c.Basis = "DAY"
	}

	return c, nil
}

func loadFile(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if path == "" {
		def := filepath.Join(xdg.ConfigHome, "stardust", "config.toml")
		if _, err := os.Stat(def); err != nil {
			return k, nil
		}
		path = def
	}

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}
	return k, nil
}
