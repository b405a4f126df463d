package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		WorkDir      string
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Media    MediaConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// MediaConfig configures where uploaded files and images are stored.
	MediaConfig struct {
		Backend string // fs | s3
		Dir     string
		URL     string

		S3Bucket          string
		S3Region          string
		S3Endpoint        string
		S3AccessKeyID     string
		S3SecretAccessKey string
		S3UsePathStyle    bool
	}
)

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, d.Port)
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "Educa")
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("secretKey", "x7#o0-c1!k$0r5e8bv(9w=2_mz^h6d%yq@fu+3lp4tg)an*je")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("server.debugHost", "0.0.0.0:4000")
	conf.SetDefault("server.readTimeout", 5*time.Second)
	conf.SetDefault("server.writeTimeout", 5*time.Second)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "educa")
	conf.SetDefault("database.user", "educa")
	conf.SetDefault("database.password", "educa")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("media.backend", "fs")
	conf.SetDefault("media.dir", "media")
	conf.SetDefault("media.url", "/media/")
	conf.SetDefault("media.s3Bucket", "")
	conf.SetDefault("media.s3Region", "us-east-1")
	conf.SetDefault("media.s3Endpoint", "")
	conf.SetDefault("media.s3AccessKeyID", "")
	conf.SetDefault("media.s3SecretAccessKey", "")
	conf.SetDefault("media.s3UsePathStyle", false)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		WorkDir:      workDir,
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Port:                      conf.GetString("server.port"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ReadTimeout:               conf.GetDuration("server.readTimeout"),
			WriteTimeout:              conf.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Media: MediaConfig{
			Backend:           conf.GetString("media.backend"),
			Dir:               conf.GetString("media.dir"),
			URL:               conf.GetString("media.url"),
			S3Bucket:          conf.GetString("media.s3Bucket"),
			S3Region:          conf.GetString("media.s3Region"),
			S3Endpoint:        conf.GetString("media.s3Endpoint"),
			S3AccessKeyID:     conf.GetString("media.s3AccessKeyID"),
			S3SecretAccessKey: conf.GetString("media.s3SecretAccessKey"),
			S3UsePathStyle:    conf.GetBool("media.s3UsePathStyle"),
		},
	}
}
