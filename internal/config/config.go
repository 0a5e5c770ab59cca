package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config regroupe toute la configuration du serveur, lue depuis l'environnement.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	Argon2    Argon2

	// "memory" ou "scylla"
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	Scylla      Scylla

	Redis   Redis
	MinIO   MinIO
	Elastic Elastic
	SMTP    SMTP
	Kafka   Kafka

	// "mock" ou "stripe"
	PaymentProvider string `env:"PAYMENT_PROVIDER" envDefault:"mock"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	Currency        string `env:"CURRENCY" envDefault:"mxn"`

	// "local" ou "kafka"
	EventBus string `env:"EVENT_BUS" envDefault:"local"`

	TaxRate            string `env:"TAX_RATE" envDefault:"0.16"`
	ShippingFee        string `env:"SHIPPING_FEE" envDefault:"5.00"`
	LowStockThreshold  int    `env:"LOW_STOCK_THRESHOLD" envDefault:"5"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
}

type Scylla struct {
	Hosts            []string `env:"SCYLLA_HOSTS" envSeparator:","`
	Username         string   `env:"SCYLLA_USERNAME"`
	Password         string   `env:"SCYLLA_PASSWORD"`
	ProductsKeyspace string   `env:"SCYLLA_KS_PRODUCTS_KEYSPACE" envDefault:"ks_products"`
	UsersKeyspace    string   `env:"SCYLLA_KS_USERS_KEYSPACE" envDefault:"ks_users"`
	OrdersKeyspace   string   `env:"SCYLLA_KS_ORDERS_KEYSPACE" envDefault:"ks_orders"`
	CreateSchema     bool     `env:"SCYLLA_CREATE_SCHEMA" envDefault:"false"`
}

// Argon2 règle le coût du hash des mots de passe (mémoire en KiB).
type Argon2 struct {
	Time      uint32 `env:"ARGON2_TIME" envDefault:"1"`
	MemoryKiB uint32 `env:"ARGON2_MEMORY_KIB" envDefault:"32768"`
	Threads   uint8  `env:"ARGON2_THREADS" envDefault:"4"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Password string `env:"REDIS_PASSWORD"`
}

type MinIO struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"perfumes"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type Elastic struct {
	URL      string `env:"ELASTIC_URL"`
	User     string `env:"ELASTIC_USER"`
	Password string `env:"ELASTIC_PASSWORD"`
	Index    string `env:"ELASTIC_INDEX" envDefault:"perfumes"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"noreply@tienda-perfumes.local"`
}

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"perfumes.events"`
	Group   string   `env:"KAFKA_GROUP" envDefault:"notification-fanout"`
}

const devJWTSecret = "super_secret"

// Load charge le fichier .env (s'il existe) puis parse l'environnement.
func Load() (*Config, error) {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		log.Println("⚠️ JWT_SECRET manquant — secret de développement utilisé")
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

// Tax renvoie le taux de TVA configuré (0.16 si la valeur est illisible).
func (c *Config) Tax() decimal.Decimal {
	return parseDecimal(c.TaxRate, "0.16")
}

// Shipping renvoie les frais de port forfaitaires.
func (c *Config) Shipping() decimal.Decimal {
	return parseDecimal(c.ShippingFee, "5.00")
}

func parseDecimal(value, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Printf("⚠️ Valeur décimale invalide %q, utilisation de %s", value, fallback)
		return decimal.RequireFromString(fallback)
	}
	return d
}
