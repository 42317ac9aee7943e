package config // package config loads application configuration from environment variables

import (
    "log/slog" // slog reports configuration errors before the process halts
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "strings"  // strings normalises list and boolean values
    "time"     // time parses durations such as PEER_TIMEOUT

    "github.com/joho/godotenv" // godotenv loads an optional .env file
)

// Config holds the runtime configuration shared by every service.  Each
// field corresponds to an environment variable.  Fields that only some
// services need (database, peers, broker) are still loaded for all of
// them; a service simply ignores what it does not use.
type Config struct {
    Service         string        // logical service name, used in logs and metrics
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    JWTSecret       string        // secret used to sign and verify credentials
    PeerTimeout     time.Duration // ceiling for every inter-service call
    DB              DBConfig      // MySQL connection settings
    Peers           Peers         // base URLs of sibling services
    RabbitMQURL     string        // AMQP broker URL; empty disables the broker
    SeedTransport   string        // "amqp" or "http": how accepted demands seed a thread
    BcryptCost      int           // bcrypt cost for password hashing
    CredentialTTL   time.Duration // lifetime of credentials returned on login/registration
    ProvisioningTTL time.Duration // lifetime of the credential used inside provider registration
}

// DBConfig carries MySQL connection settings for one service's own database.
type DBConfig struct {
    User    string // database username
    Pass    string // database password (optional)
    Host    string // database host address
    Port    string // database port number
    Name    string // database name
    Migrate bool   // apply CREATE TABLE IF NOT EXISTS statements at start-up
}

// Peers lists sibling service base URLs.  Defaults match the ports used by
// the local docker-compose setup.
type Peers struct {
    Identity string
    Catalog  string
    Provider string
    Demand   string
    Message  string
}

// LoadDotEnv loads a .env file when present.  Missing files are ignored.
func LoadDotEnv() {
    _ = godotenv.Load()
}

// Load reads configuration for a database-backed service.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a non-zero status.
func Load(service string) Config {
    cfg := base(service)
    cfg.DB = DBConfig{
        User:    must("DB_USER"),               // database user
        Pass:    os.Getenv("DB_PASS"),          // database password (empty allowed)
        Host:    must("DB_HOST"),               // database host
        Port:    envStr("DB_PORT", "3306"),     // database port
        Name:    must("DB_NAME"),               // database name
        Migrate: envBool("DB_MIGRATE", true),   // apply schema at start-up
    }
    return cfg
}

// LoadGateway reads configuration for the gateway, which owns no database.
func LoadGateway() Config {
    return base("gateway")
}

func base(service string) Config {
    broker := envStr("RABBITMQ_URL", os.Getenv("AMQP_URL"))
    transport := strings.ToLower(envStr("SEED_TRANSPORT", ""))
    if transport != "amqp" && transport != "http" {
        transport = "http"
        if broker != "" {
            transport = "amqp"
        }
    }
    return Config{
        Service:     service,
        Env:         envStr("APP_ENV", "dev"),
        Port:        must("APP_PORT"),
        JWTSecret:   must("JWT_SECRET"),
        PeerTimeout: envDur("PEER_TIMEOUT", 5*time.Second),
        Peers: Peers{
            Identity: envStr("IDENTITY_SERVICE_URL", "http://localhost:5001"),
            Catalog:  envStr("CATALOG_SERVICE_URL", "http://localhost:5002"),
            Provider: envStr("PROVIDER_SERVICE_URL", "http://localhost:5003"),
            Demand:   envStr("DEMAND_SERVICE_URL", "http://localhost:5004"),
            Message:  envStr("MESSAGE_SERVICE_URL", "http://localhost:5005"),
        },
        RabbitMQURL:     broker,
        SeedTransport:   transport,
        BcryptCost:      envInt("BCRYPT_COST", 10),
        CredentialTTL:   envDur("CREDENTIAL_TTL", 7*24*time.Hour),
        ProvisioningTTL: envDur("PROVISIONING_TTL", 10*time.Minute),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs the problem and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        slog.Error("missing required env var", "key", key)
        os.Exit(1)
    }
    return v
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch strings.ToLower(v) {
    case "1", "true", "yes", "on": return true
    case "0", "false", "no", "off": return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
