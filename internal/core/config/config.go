package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Database holds the PostgreSQL connection configuration.
	Database DatabaseConfig `mapstructure:",squash"`

	// RedisURL is the connection URL for the cart store.
	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379"`

	// Vnpay holds the VNPay merchant configuration.
	Vnpay VnpayConfig `mapstructure:",squash"`

	// PayOS holds the PayOS merchant configuration.
	PayOS PayOSConfig `mapstructure:",squash"`
}

// DatabaseConfig holds PostgreSQL connection details.
type DatabaseConfig struct {
	// Host is the database server hostname.
	Host string `mapstructure:"DB_HOST" default:"localhost"`
	// Port is the database connection port.
	Port int `mapstructure:"DB_PORT" default:"5432"`
	// User is the database user.
	User string `mapstructure:"DB_USER" default:"postgres"`
	// Password is the database password.
	Password string `mapstructure:"DB_PASSWORD" required:"true"`
	// Name is the database name.
	Name string `mapstructure:"DB_NAME" default:"silkshop"`
	// MigrationsPath is the directory holding SQL migration files.
	MigrationsPath string `mapstructure:"DB_MIGRATIONS_PATH" default:"migrations"`
}

// VnpayConfig holds the merchant credentials for the VNPay redirect gateway.
type VnpayConfig struct {
	// TmnCode is the merchant terminal code issued by VNPay.
	TmnCode string `mapstructure:"VNPAY_TMN_CODE" required:"true"`
	// HashSecret is the shared secret used to sign and verify payloads.
	HashSecret string `mapstructure:"VNPAY_HASH_SECRET" required:"true"`
	// BaseURL is the VNPay hosted-payment page base URL.
	BaseURL string `mapstructure:"VNPAY_BASE_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	// ReturnURL is the backend callback endpoint registered with VNPay.
	ReturnURL string `mapstructure:"VNPAY_RETURN_URL" required:"true"`
	// FrontendCallbackURL is where the shopper's browser is redirected after reconciliation.
	FrontendCallbackURL string `mapstructure:"VNPAY_FRONTEND_CALLBACK_URL" default:"http://localhost:3000/payment-result"`
}

// PayOSConfig holds the merchant credentials for the PayOS checkout-link gateway.
type PayOSConfig struct {
	// ClientID identifies the merchant to PayOS.
	ClientID string `mapstructure:"PAYOS_CLIENT_ID" required:"true"`
	// APIKey authenticates create-payment-link requests.
	APIKey string `mapstructure:"PAYOS_API_KEY" required:"true"`
	// ChecksumKey signs outbound requests and verifies inbound webhooks.
	ChecksumKey string `mapstructure:"PAYOS_CHECKSUM_KEY" required:"true"`
	// BaseURL is the PayOS merchant API base URL.
	BaseURL string `mapstructure:"PAYOS_BASE_URL" default:"https://api-merchant.payos.vn"`
	// ReturnURL is where PayOS sends the shopper after a completed checkout.
	ReturnURL string `mapstructure:"PAYOS_RETURN_URL" required:"true"`
	// CancelURL is where PayOS sends the shopper after an abandoned checkout.
	CancelURL string `mapstructure:"PAYOS_CANCEL_URL" required:"true"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
