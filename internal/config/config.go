// Package config provides the typed configuration used by the generate and check commands, loaded from an optional
// TOML file.
package config

import (
	"errors"

	"github.com/BurntSushi/toml"
)

type (
	// The Config type contains fields used to configure the upstream configuration generator.
	Config struct {
		// Where the China domain lists come from.
		Sources SourceConfig `toml:"sources"`
		// The DNS servers referenced by the generated configuration.
		DNS DNSConfig `toml:"dns"`
		// Where the generated configuration ends up.
		Output OutputConfig `toml:"output"`
		// Logging behavior.
		Logging *LoggingConfig `toml:"logging"`
	}

	// The SourceConfig type contains fields describing the domain lists to download.
	SourceConfig struct {
		// URLs of dnsmasq-format domain lists. Each is expected to contain "server=/<domain>/<address>" lines.
		URLs []string `toml:"urls"`
		// The minimum number of merged records considered a healthy download. Runs producing fewer records
		// fail without writing anything.
		MinimumRecords int `toml:"minimum-records"`
	}

	// The DNSConfig type contains the resolver addresses written into the generated configuration.
	DNSConfig struct {
		// Resolvers used for domains found in the downloaded lists.
		China []string `toml:"china"`
		// Resolvers used for everything else. Typically encrypted, e.g. "tls://8.8.8.8".
		Trusted []string `toml:"trusted"`
	}

	// The OutputConfig type contains fields describing the generated artifact and its manual override file.
	OutputConfig struct {
		// The path the generated configuration is written to.
		File string `toml:"file"`
		// The path of the user-maintained override file. Missing is fine; it just means no overrides.
		OverrideFile string `toml:"override-file"`
	}

	// The LoggingConfig type contains fields for configuring log output.
	LoggingConfig struct {
		// The minimum log level. One of "debug", "info", "warn" or "error".
		Level string `toml:"level"`
	}
)

// DefaultConfig returns a Config type containing working default values. By default, the felixonmars
// dnsmasq-china-list accelerated and apple lists are downloaded, matched domains route to AliDNS and everything
// else routes to Google DNS over TLS.
func DefaultConfig() Config {
	return Config{
		Sources: SourceConfig{
			URLs: []string{
				"https://raw.githubusercontent.com/felixonmars/dnsmasq-china-list/master/accelerated-domains.china.conf",
				"https://raw.githubusercontent.com/felixonmars/dnsmasq-china-list/master/apple.china.conf",
			},
			MinimumRecords: 70000,
		},
		DNS: DNSConfig{
			China:   []string{"223.5.5.5", "223.6.6.6"},
			Trusted: []string{"tls://8.8.8.8", "tls://8.8.4.4"},
		},
		Output: OutputConfig{
			File:         "china-dns-adguardhome.conf",
			OverrideFile: "extra.conf",
		},
	}
}

// LoadConfig the configuration file at the specified path. The configuration file is expected in TOML format.
func LoadConfig(path string) (Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate the configuration fields.
func (c *Config) Validate() error {
	return errors.Join(
		c.Sources.validate(),
		c.DNS.validate(),
		c.Output.validate(),
	)
}

func (c *SourceConfig) validate() error {
	if len(c.URLs) == 0 {
		return errors.New("at least one source url must be specified")
	}

	if c.MinimumRecords < 0 {
		return errors.New("minimum record count cannot be negative")
	}

	return nil
}

func (c *DNSConfig) validate() error {
	if len(c.China) == 0 {
		return errors.New("at least one china dns server must be specified")
	}

	if len(c.Trusted) == 0 {
		return errors.New("at least one trusted dns server must be specified")
	}

	return nil
}

func (c *OutputConfig) validate() error {
	if c.File == "" {
		return errors.New("output file must be specified")
	}

	return nil
}
