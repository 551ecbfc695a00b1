package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Node struct {
	// DataDir holds the Pebble database.
	DataDir string
	LogFile string
}

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Config struct {
	Node Node
	API  API
}

func Default() Config {
	return Config{
		Node: Node{
			DataDir: "data/db",
			LogFile: "data/node.log",
		},
		API: API{
			Addr:           ":8530",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Node.DataDir = dir
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Node.LogFile = file
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = strings.Split(origins, ",")
	}

	return cfg
}
