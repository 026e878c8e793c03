package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultAuthorName and DefaultAuthorEmail are used when no identity is
	// configured.
	DefaultAuthorName  = "default"
	DefaultAuthorEmail = "default@email.com"

	envAuthorName  = "TWIG_AUTHOR_NAME"
	envAuthorEmail = "TWIG_AUTHOR_EMAIL"
)

// Config stores repository-local settings: the commit identity and named
// remotes.
type Config struct {
	User    UserConfig        `toml:"user"`
	Remotes map[string]string `toml:"remotes,omitempty"`
}

// UserConfig is the [user] section.
type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// Identity is the name and email recorded as commit author and committer.
type Identity struct {
	Name  string
	Email string
}

// IsZero reports whether neither field is set.
func (id Identity) IsZero() bool {
	return id.Name == "" && id.Email == ""
}

// identityForbidden are the characters that would break the
// "Name <email> time zone" commit header line.
const identityForbidden = "<>\n\r"

// Validate reports ErrInvalidIdentity when either field contains a line
// break or an angle bracket.
func (id Identity) Validate() error {
	if err := validateIdentityField("name", id.Name); err != nil {
		return err
	}
	return validateIdentityField("email", id.Email)
}

func validateIdentityField(field, v string) error {
	if strings.ContainsAny(v, identityForbidden) {
		return fmt.Errorf("%w: %s %q may not contain '<', '>' or line breaks", ErrInvalidIdentity, field, v)
	}
	return nil
}

func (r *Repo) configPath() string {
	return filepath.Join(r.Dir, "config")
}

// ReadConfig reads .twig/config. Missing or empty config returns an empty
// config.
func (r *Repo) ReadConfig() (*Config, error) {
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Remotes: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("read config: decode: %w", err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	return &cfg, nil
}

// WriteConfig atomically writes .twig/config.
func (r *Repo) WriteConfig(cfg *Config) error {
	return r.withLock("write config", func() error {
		return r.writeConfig(cfg)
	})
}

func (r *Repo) writeConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.Dir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	r.Logger.Debug("wrote config", "path", r.configPath())
	return nil
}

// updateConfig applies fn to the current config and writes the result under
// the repository lock.
func (r *Repo) updateConfig(op string, fn func(*Config) error) error {
	return r.withLock(op, func() error {
		cfg, err := r.ReadConfig()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := fn(cfg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := r.writeConfig(cfg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// Lookup returns the value stored at section.key. Supported keys are
// user.name, user.email and remote.<name>.
func (cfg *Config) Lookup(section, key string) (string, bool) {
	var v string
	switch section {
	case "user":
		switch key {
		case "name":
			v = cfg.User.Name
		case "email":
			v = cfg.User.Email
		}
	case "remote":
		v = cfg.Remotes[key]
	}
	return v, v != ""
}

// SplitConfigKey splits a dotted key such as "user.name" into its section
// and key.
func SplitConfigKey(dotted string) (section, key string, err error) {
	section, key, ok := strings.Cut(strings.TrimSpace(dotted), ".")
	if !ok || section == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q (want section.key)", ErrUnknownConfigKey, dotted)
	}
	return section, key, nil
}

// SetConfig stores value at section.key. Only user.name and user.email are
// settable this way; remotes go through SetRemote.
func (r *Repo) SetConfig(section, key, value string) error {
	value = strings.TrimSpace(value)
	return r.updateConfig("set config", func(cfg *Config) error {
		if section != "user" {
			return fmt.Errorf("%w: %s.%s", ErrUnknownConfigKey, section, key)
		}
		if err := validateIdentityField(key, value); err != nil {
			return err
		}
		switch key {
		case "name":
			cfg.User.Name = value
		case "email":
			cfg.User.Email = value
		default:
			return fmt.Errorf("%w: %s.%s", ErrUnknownConfigKey, section, key)
		}
		return nil
	})
}

// Identity returns the commit identity: TWIG_AUTHOR_NAME and
// TWIG_AUTHOR_EMAIL first, then the [user] section, then the default
// placeholder.
func (r *Repo) Identity() (Identity, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return Identity{}, fmt.Errorf("identity: %w", err)
	}
	id := Identity{Name: cfg.User.Name, Email: cfg.User.Email}
	if v := strings.TrimSpace(os.Getenv(envAuthorName)); v != "" {
		id.Name = v
	}
	if v := strings.TrimSpace(os.Getenv(envAuthorEmail)); v != "" {
		id.Email = v
	}
	if id.Name == "" {
		id.Name = DefaultAuthorName
	}
	if id.Email == "" {
		id.Email = DefaultAuthorEmail
	}
	return id, nil
}

// SetRemote stores/updates a named remote URL in repository config.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("set remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return fmt.Errorf("set remote: remote URL is required")
	}

	return r.updateConfig("set remote", func(cfg *Config) error {
		cfg.Remotes[name] = remoteURL
		return nil
	})
}

// RemoveRemote deletes a named remote. It returns ErrRefNotFound when the
// remote is not configured.
func (r *Repo) RemoveRemote(name string) error {
	name = strings.TrimSpace(name)
	return r.updateConfig("remove remote", func(cfg *Config) error {
		if _, ok := cfg.Remotes[name]; !ok {
			return fmt.Errorf("remote %q: %w", name, ErrRefNotFound)
		}
		delete(cfg.Remotes, name)
		return nil
	})
}

// RemoteURL returns the configured URL for the given remote name.
func (r *Repo) RemoteURL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("remote name is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	url, ok := cfg.Lookup("remote", name)
	if !ok {
		return "", fmt.Errorf("remote %q is not configured", name)
	}
	return url, nil
}

// RemoteNames returns configured remote names, sorted.
func (cfg *Config) RemoteNames() []string {
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
