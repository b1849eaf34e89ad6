package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host string
		Port string
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	RemoteConfig struct {
		Enabled bool
		BaseURL string
		APIKey  string
		Timeout time.Duration
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (local; default), TEST, QA, PROD
		AppName  string
		Build    string

		SecretKey          []byte
		JWTExpirationDelta time.Duration

		WorkDir string
		DataDir string // device-local JSON store location
		Storage string // "local" | "postgres"

		FrontendBaseURL  string
		MeetingBaseURL   string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Remote   RemoteConfig
	}
)

func (c ServerConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }

func (c DatabaseConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables; in that order of
// increasing precedence.
func NewConfig() (*Config, error) {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Mutqin")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w3@rn-t4jw33d&h1fz-w1th-mutq1n!")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("dataDir", filepath.Join(Getwd(), "data"))
	conf.SetDefault("storage", "local")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("meetingBaseURL", "https://meet.mutqin.app")
	conf.SetDefault("defaultFromEmail", "noreply@mutqin.app")
	conf.SetDefault("server.host", "")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "mutqin")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("remote.enabled", false)
	conf.SetDefault("remote.timeout", 10*time.Second)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	case "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:              conf.GetBool("debug"),
		TestMode:           conf.GetBool("testMode"),
		Env:                env,
		AppName:            conf.GetString("appName"),
		Build:              conf.GetString("build"),
		SecretKey:          []byte(conf.GetString("secretKey")),
		JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		WorkDir:            Getwd(),
		DataDir:            conf.GetString("dataDir"),
		Storage:            conf.GetString("storage"),
		FrontendBaseURL:    conf.GetString("frontendBaseURL"),
		MeetingBaseURL:     conf.GetString("meetingBaseURL"),
		DefaultFromEmail:   mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		SendgridApiKey:     conf.GetString("sendgridApiKey"),
		RollbarToken:       conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host: conf.GetString("server.host"),
			Port: conf.GetString("server.port"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Remote: RemoteConfig{
			Enabled: conf.GetBool("remote.enabled"),
			BaseURL: conf.GetString("remote.baseURL"),
			APIKey:  conf.GetString("remote.apiKey"),
			Timeout: conf.GetDuration("remote.timeout"),
		},
	}, nil
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
