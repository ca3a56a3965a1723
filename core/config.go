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
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine          string // postgres | memory
		Host            string
		Port            string
		Name            string
		User            string
		Password        string
		AdminUser       string
		AdminPassword   string
		DisableTLS      bool
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}

	SchedulerConfig struct {
		Disabled       bool
		SweepSpec      string
		ReminderSpec   string
		ReminderWindow [2]time.Duration // [from, to] before the deadline
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		Server    ServerConfig
		Database  DatabaseConfig
		Scheduler SchedulerConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the configuration of the current environment (ENV: DEV, TEST, QA, PROD).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Proft")
	v.SetDefault("secretKey", "rk2u-1n9$b!mo^x)+p3h8hvw*c_5y7$q0l%j_4u&tz#gs=oefa")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Proft <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 5*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseName", "proft")
	v.SetDefault("databaseUser", "proft")
	v.SetDefault("databasePassword", "proft")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "postgres")
	v.SetDefault("databaseDisableTLS", true)
	v.SetDefault("databaseMaxOpenConns", 20)
	v.SetDefault("databaseMaxIdleConns", 10)
	v.SetDefault("databaseConnMaxLifetime", 30*time.Minute)

	v.SetDefault("schedulerDisabled", false)
	v.SetDefault("schedulerSweepSpec", "@every 30m")
	v.SetDefault("schedulerReminderSpec", "@hourly")
	v.SetDefault("schedulerReminderFrom", 20*time.Hour)
	v.SetDefault("schedulerReminderTo", 28*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ReadTimeout:               v.GetDuration("serverReadTimeout"),
			WriteTimeout:              v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:          v.GetString("databaseEngine"),
			Host:            v.GetString("databaseHost"),
			Port:            v.GetString("databasePort"),
			Name:            v.GetString("databaseName"),
			User:            v.GetString("databaseUser"),
			Password:        v.GetString("databasePassword"),
			AdminUser:       v.GetString("databaseAdminUser"),
			AdminPassword:   v.GetString("databaseAdminPassword"),
			DisableTLS:      v.GetBool("databaseDisableTLS"),
			MaxOpenConns:    v.GetInt("databaseMaxOpenConns"),
			MaxIdleConns:    v.GetInt("databaseMaxIdleConns"),
			ConnMaxLifetime: v.GetDuration("databaseConnMaxLifetime"),
		},
		Scheduler: SchedulerConfig{
			Disabled:     v.GetBool("schedulerDisabled"),
			SweepSpec:    v.GetString("schedulerSweepSpec"),
			ReminderSpec: v.GetString("schedulerReminderSpec"),
			ReminderWindow: [2]time.Duration{
				v.GetDuration("schedulerReminderFrom"),
				v.GetDuration("schedulerReminderTo"),
			},
		},
	}
}

// NewTestConfig returns the configuration used by tests: debug on, in-memory database, scheduler off.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = true
	conf.TestMode = true
	conf.Database.Engine = "memory"
	conf.Scheduler.Disabled = true
	return conf
}
