// Package config loads run settings from compiled-in defaults, an optional
// YAML file and GETSTATEMENTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/perarneng/getstatements/pkg/filter"
)

const (
	BackendGmail = "gmail"
	BackendIMAP  = "imap"

	envPrefix       = "GETSTATEMENTS"
	defaultFileName = "getstatements"
)

// BankProfile identifies one statement source and where its files go.
type BankProfile struct {
	Name    string        `mapstructure:"-"`
	Sender  string        `mapstructure:"sender"`
	Subject string        `mapstructure:"subject"`
	SaveDir string        `mapstructure:"save_dir"`
	Filter  filter.Policy `mapstructure:"filter"`
}

type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
}

type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Mailbox  string `mapstructure:"mailbox"`
	TLS      bool   `mapstructure:"tls"`
}

type Config struct {
	EnabledBanks []string               `mapstructure:"enabled_banks"`
	YearsBack    int                    `mapstructure:"years_back"`
	MaxAttempts  int                    `mapstructure:"max_attempts"`
	BaseDir      string                 `mapstructure:"base_dir"`
	Backend      string                 `mapstructure:"backend"`
	PasswordMode string                 `mapstructure:"password_mode"`
	Passwords    []string               `mapstructure:"passwords"`
	Banks        map[string]BankProfile `mapstructure:"banks"`
	Gmail        GmailConfig            `mapstructure:"gmail"`
	IMAP         IMAPConfig             `mapstructure:"imap"`
}

// Profile returns the named bank profile.
func (c Config) Profile(bank string) (BankProfile, bool) {
	p, ok := c.Banks[strings.ToLower(bank)]
	return p, ok
}

// BankNames lists configured profiles alphabetically.
func (c Config) BankNames() []string {
	names := make([]string, 0, len(c.Banks))
	for name := range c.Banks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinProfiles() map[string]BankProfile {
	return map[string]BankProfile{
		"hdfc": {
			Sender:  "Emailstatements.cards@hdfcbank.net",
			Subject: "Diners Club International Credit Card Statement",
			SaveDir: "hdfc_statements",
		},
		"icici": {
			Sender:  "noreply@icicibank.com",
			Subject: "ICICI Bank Credit Card Statement",
			SaveDir: "icici_statements",
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("enabled_banks", []string{"hdfc"})
	v.SetDefault("years_back", 2)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("base_dir", ".")
	v.SetDefault("backend", BackendGmail)
	v.SetDefault("password_mode", "ask")
	v.SetDefault("passwords", []string{})
	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.tls", true)
}

// Load reads path, or getstatements.yaml from the working directory when path
// is empty. A missing default file is not an error; a missing explicit one is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	banks := make(map[string]BankProfile, len(c.Banks))
	for name, p := range builtinProfiles() {
		banks[name] = p
	}
	for name, p := range c.Banks {
		name = strings.ToLower(name)
		banks[name] = mergeProfile(banks[name], p)
	}
	for name, p := range banks {
		p.Name = name
		if p.SaveDir == "" {
			p.SaveDir = name + "_statements"
		}
		if p.Filter.IsZero() {
			p.Filter = filter.ForBank(name)
		}
		banks[name] = p
	}
	c.Banks = banks

	enabled := c.EnabledBanks[:0]
	for _, bank := range c.EnabledBanks {
		if bank = strings.ToLower(strings.TrimSpace(bank)); bank != "" {
			enabled = append(enabled, bank)
		}
	}
	c.EnabledBanks = enabled
	c.Backend = strings.ToLower(c.Backend)
}

// mergeProfile overlays the fields set in override onto base.
func mergeProfile(base, override BankProfile) BankProfile {
	if override.Sender != "" {
		base.Sender = override.Sender
	}
	if override.Subject != "" {
		base.Subject = override.Subject
	}
	if override.SaveDir != "" {
		base.SaveDir = override.SaveDir
	}
	if !override.Filter.IsZero() {
		base.Filter = override.Filter
	}
	return base
}

func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.YearsBack < 0 {
		return fmt.Errorf("years_back must not be negative, got %d", c.YearsBack)
	}
	switch c.Backend {
	case BackendGmail:
	case BackendIMAP:
		if c.IMAP.Host == "" || c.IMAP.Username == "" {
			return errors.New("imap backend needs imap.host and imap.username")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	for name, p := range c.Banks {
		if p.Sender == "" {
			return fmt.Errorf("bank %s has no sender", name)
		}
	}
	return nil
}
