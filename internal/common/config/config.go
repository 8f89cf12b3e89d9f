package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Console struct {
	Port            int
	RefreshInterval int    // seconds between background snapshot refreshes
	OnFailure       string // keep | rollback
}

type Upstream struct {
	BaseURL string
	Timeout int // seconds per request
}

type DB struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type MQ struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type App struct {
	Console  Console
	Upstream Upstream
	Database DB
	Rabbit   MQ
}

// Load reads the two-level YAML config at path. Purpose-built reader for our
// simple format: top-level sections and their k: v pairs, no nesting beyond
// that. Secrets can be supplied or overridden through the environment
// (a .env file is honored when present).
func Load(path string) (App, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return App{}, err
	}
	defer f.Close()

	a := App{
		Console:  Console{Port: 8080, RefreshInterval: 15, OnFailure: "keep"},
		Upstream: Upstream{Timeout: 10},
		Database: DB{Port: 5432, SSLMode: "disable"},
		Rabbit:   MQ{Port: 5672, VHost: "/"},
	}

	var section string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			section = strings.TrimSuffix(line, ":")
			continue
		}
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.Trim(strings.TrimSpace(kv[1]), `"'`)

		switch section {
		case "console":
			switch key {
			case "port":
				a.Console.Port = atoi(val, 8080)
			case "refresh_interval":
				a.Console.RefreshInterval = atoi(val, 15)
			case "on_failure":
				a.Console.OnFailure = val
			}
		case "upstream":
			switch key {
			case "base_url":
				a.Upstream.BaseURL = val
			case "timeout":
				a.Upstream.Timeout = atoi(val, 10)
			}
		case "database":
			switch key {
			case "host":
				a.Database.Host = val
			case "port":
				a.Database.Port = atoi(val, 5432)
			case "user":
				a.Database.User = val
			case "password":
				a.Database.Password = val
			case "database":
				a.Database.Database = val
			case "sslmode":
				if val != "" {
					a.Database.SSLMode = val
				}
			}
		case "rabbitmq":
			switch key {
			case "host":
				a.Rabbit.Host = val
			case "port":
				a.Rabbit.Port = atoi(val, 5672)
			case "user":
				a.Rabbit.User = val
			case "password":
				a.Rabbit.Password = val
			case "vhost":
				if val != "" {
					a.Rabbit.VHost = val
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return App{}, err
	}

	applyEnv(&a)

	if a.Console.OnFailure != "keep" && a.Console.OnFailure != "rollback" {
		return App{}, fmt.Errorf("console.on_failure must be keep or rollback, got %q", a.Console.OnFailure)
	}
	return a, nil
}

// applyEnv lets deployment environments override file values without
// editing the config.
func applyEnv(a *App) {
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		a.Upstream.BaseURL = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		a.Database.Password = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		a.Rabbit.Password = v
	}
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
