package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envEmailAddress  = "EMAIL_ADDRESS"
	envEmailPassword = "EMAIL_PASSWORD"
	envIMAPServer    = "IMAP_SERVER"

	// EnvConfigPath names the YAML file when --config is not given.
	EnvConfigPath = "MAILTRIAGE_CONFIG"

	DefaultMailbox  = "INBOX"
	DefaultIMAPPort = 993
	DefaultEnvFile  = ".env"
)

// ConfigurationError reports missing or invalid settings. It is fatal.
type ConfigurationError struct {
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		msg := "missing required environment variables: " + strings.Join(e.Missing, ", ")
		if e.Err != nil {
			msg += fmt.Sprintf(" (%v)", e.Err)
		}
		return msg
	}
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Config holds non-secret configuration loaded from YAML.
type Config struct {
	Mailbox string `yaml:"mailbox"`
	Expunge *bool  `yaml:"expunge"`
	Audit   Audit  `yaml:"audit"`
}

// Audit configures the deletion audit database. An empty path disables it.
type Audit struct {
	Path string `yaml:"path"`
}

// ExpungeEnabled reports whether deletions are expunged. Defaults to true.
func (c Config) ExpungeEnabled() bool {
	return c.Expunge == nil || *c.Expunge
}

// IMAPEnv holds the account details from environment variables.
type IMAPEnv struct {
	Host string
	Port int
	User string
	Pass string
}

func (e IMAPEnv) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// PasswordSource looks up a stored password for an account.
type PasswordSource interface {
	Password(account string) (string, error)
}

// LoadDotEnv loads path into the environment when it exists. Variables
// already set are not overridden.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &ConfigurationError{Err: fmt.Errorf("loading %s: %w", path, err)}
	}
	return nil
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &ConfigurationError{Err: err}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &ConfigurationError{Err: fmt.Errorf("parsing %s: %w", path, err)}
		}
	}

	cfg.Mailbox = strings.TrimSpace(cfg.Mailbox)
	if cfg.Mailbox == "" {
		cfg.Mailbox = DefaultMailbox
	}
	cfg.Audit.Path = strings.TrimSpace(cfg.Audit.Path)
	return cfg, nil
}

// IMAPEnvFromEnv loads account details. When EMAIL_PASSWORD is unset the
// password comes from passwords, if given. All missing entries are reported
// together.
func IMAPEnvFromEnv(passwords PasswordSource) (IMAPEnv, error) {
	missing := []string{}

	user := strings.TrimSpace(os.Getenv(envEmailAddress))
	if user == "" {
		missing = append(missing, envEmailAddress)
	}

	var lookupErr error
	pass := os.Getenv(envEmailPassword)
	if strings.TrimSpace(pass) == "" {
		pass = ""
		if passwords != nil && user != "" {
			pass, lookupErr = passwords.Password(user)
		}
		if pass == "" {
			missing = append(missing, envEmailPassword)
		}
	}

	server := strings.TrimSpace(os.Getenv(envIMAPServer))
	if server == "" {
		missing = append(missing, envIMAPServer)
	}

	if len(missing) > 0 {
		return IMAPEnv{}, &ConfigurationError{Missing: missing, Err: lookupErr}
	}

	host, port, err := splitServer(server)
	if err != nil {
		return IMAPEnv{}, &ConfigurationError{Err: fmt.Errorf("invalid %s: %w", envIMAPServer, err)}
	}

	return IMAPEnv{
		Host: host,
		Port: port,
		User: user,
		Pass: pass,
	}, nil
}

// PasswordFromEnv reports whether EMAIL_PASSWORD is set.
func PasswordFromEnv() bool {
	return strings.TrimSpace(os.Getenv(envEmailPassword)) != ""
}

func splitServer(server string) (string, int, error) {
	if !strings.Contains(server, ":") {
		return server, DefaultIMAPPort, nil
	}

	host, portRaw, err := net.SplitHostPort(server)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		return "", 0, errors.New("host is empty")
	}
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return "", 0, fmt.Errorf("port %q: %w", portRaw, err)
	}
	if port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("port %d out of range", port)
	}
	return host, port, nil
}

// Summary returns a concise config summary for verbose runs.
func Summary(cfg Config, env IMAPEnv) string {
	return fmt.Sprintf(
		"Config summary\n"+
			"- server: %s\n"+
			"- account: %s\n"+
			"- mailbox: %s\n"+
			"- expunge: %t\n"+
			"- audit path: %s",
		env.Addr(),
		env.User,
		cfg.Mailbox,
		cfg.ExpungeEnabled(),
		defaultIfEmpty(cfg.Audit.Path, "(not set)"),
	)
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
