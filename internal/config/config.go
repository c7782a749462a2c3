package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"moor/internal/core/domain"
)

const (
	DefaultPort     = 443
	DefaultHTTPPort = 80
	DefaultProtocol = "vless"
	DefaultFlow     = "xtls-rprx-vision"
	DefaultEmail    = "admin@example.com"

	DefaultCertDir       = "/cert"
	DefaultWebRoot       = "/var/www/html"
	DefaultXrayConfig    = "/etc/xray/config.json"
	DefaultNginxConf     = "/etc/nginx/conf.d/default.conf"
	DefaultDataDir       = "/usr/local/share/xray"
	DefaultRenewLog      = "/var/log/moor/renew.log"
	DefaultACMEDirectory = "https://acme-v02.api.letsencrypt.org/directory"
)

// Config is resolved exactly once at boot and never mutated afterwards.
// Every later stage receives it explicitly; nothing reads the environment
// again after Resolve returns.
type Config struct {
	Domain   string `validate:"required,hostname_rfc1123"`
	Port     int    `validate:"min=1,max=65535"`
	HTTPPort int    `validate:"min=1,max=65535"`
	ClientID string `validate:"required,uuid"`
	Protocol string `validate:"required"`
	Flow     string
	Email    string `validate:"required,email"`

	CertDir        string
	WebRoot        string
	XrayConfigPath string
	NginxConfPath  string
	DataDir        string
	RenewLogPath   string

	ACMEDirectory string
	XrayBin       string
	NginxBin      string

	// GeneratedID marks that ClientID was minted this boot, so the caller
	// can show it to the operator exactly once.
	GeneratedID bool
}

var validate = validator.New()

// Resolve reads the environment, applies default fallbacks and validates the
// result. The only randomness in the whole program happens here: an absent
// UUID is generated (v4) and flagged via GeneratedID.
func Resolve() (*Config, error) {
	domainName := getEnv("DOMAIN", "")
	if domainName == "" {
		return nil, &domain.MissingRequiredInputError{Field: "DOMAIN"}
	}

	port, err := getEnvInt("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	httpPort, err := getEnvInt("HTTP_PORT", DefaultHTTPPort)
	if err != nil {
		return nil, err
	}

	clientID := getEnv("UUID", "")
	generated := false
	if clientID == "" {
		clientID = uuid.NewString()
		generated = true
	}

	cfg := &Config{
		Domain:   domainName,
		Port:     port,
		HTTPPort: httpPort,
		ClientID: clientID,
		Protocol: getEnv("PROTOCOL", DefaultProtocol),
		Flow:     getEnv("FLOW", DefaultFlow),
		Email:    getEnv("ACME_EMAIL", DefaultEmail),

		CertDir:        getEnv("CERT_DIR", DefaultCertDir),
		WebRoot:        getEnv("WEB_ROOT", DefaultWebRoot),
		XrayConfigPath: getEnv("XRAY_CONFIG", DefaultXrayConfig),
		NginxConfPath:  getEnv("NGINX_CONF", DefaultNginxConf),
		DataDir:        getEnv("DATA_DIR", DefaultDataDir),
		RenewLogPath:   getEnv("RENEW_LOG", DefaultRenewLog),

		ACMEDirectory: getEnv("ACME_DIRECTORY", DefaultACMEDirectory),
		XrayBin:       getEnv("XRAY_BIN", "xray"),
		NginxBin:      getEnv("NGINX_BIN", "nginx"),

		GeneratedID: generated,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
// Empty counts as absent: containers routinely pass VAR= through compose
// files without meaning it.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not a number", key, raw)
	}
	return value, nil
}
