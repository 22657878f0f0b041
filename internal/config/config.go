package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
	// Mode is RW or RO. A read-only instance rejects writes over HTTP.
	Mode string
}

type RedisCache struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
}

type Postgres struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Game struct {
	Rounds     int
	StateTTL   time.Duration
	SendBuffer int
}

type Config struct {
	HTTP     HTTPServer
	Redis    RedisCache
	Postgres Postgres
	Game     Game
}

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg := FromEnv()
	log.Printf("%s backend config : %+v\n", logtag, cfg)
	return cfg
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() *Config {
	return &Config{
		HTTP:     *newHTTP(),
		Redis:    *newRedis(),
		Postgres: *newPostgres(),
		Game:     *newGame(),
	}
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

// URL is the form golang-migrate expects.
func (p Postgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

func newHTTP() *HTTPServer {
	return &HTTPServer{
		Port: getenv("HTTP_PORT", "8080"),
		Host: getenv("HTTP_HOST", "localhost"),
		Mode: getenv("INSTANCE_MODE", "RW"),
	}
}

func newRedis() *RedisCache {
	return &RedisCache{
		Enabled:  getbool("REDIS_ENABLED", false),
		Port:     getenv("REDIS_PORT", "6379"),
		Host:     getenv("REDIS_HOST", "redis"),
		Password: getenv("REDIS_PASSWORD", "shared"),
	}
}

func newPostgres() *Postgres {
	return &Postgres{
		Enabled:  getbool("POSTGRES_ENABLED", false),
		Host:     getenv("DB_HOST", "localhost"),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "admin"),
		Password: getenv("DB_PASSWORD", "shared"),
		DBName:   getenv("DB_NAME", "soundbyte"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
}

func newGame() *Game {
	return &Game{
		Rounds:     getint("GAME_ROUNDS", 10),
		StateTTL:   getduration("GAME_STATE_TTL", time.Hour),
		SendBuffer: getint("WS_SEND_BUFFER", 256),
	}
}

func getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	fmt.Printf("%s %s = %s\n", logtag, key, val)
	return val
}

func getint(key string, defaultValue int) int {
	raw := getenv(key, strconv.Itoa(defaultValue))
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		fmt.Printf("%s %s is not a positive integer. Using default value %d\n", logtag, key, defaultValue)
		return defaultValue
	}
	return val
}

func getbool(key string, defaultValue bool) bool {
	raw := getenv(key, strconv.FormatBool(defaultValue))
	val, err := strconv.ParseBool(raw)
	if err != nil {
		fmt.Printf("%s %s is not a boolean. Using default value %t\n", logtag, key, defaultValue)
		return defaultValue
	}
	return val
}

func getduration(key string, defaultValue time.Duration) time.Duration {
	raw := getenv(key, defaultValue.String())
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		fmt.Printf("%s %s is not a duration. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	return val
}
