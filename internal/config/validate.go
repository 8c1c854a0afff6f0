package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config file names (server.mcp_path).
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints and cross-field rules. Errors carry the
// CONFIG_INVALID prefix and name the offending key.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("CONFIG_INVALID: nil config")
	}
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return describeFieldError(fieldErrs[0])
		}
		return fmt.Errorf("CONFIG_INVALID: %w", err)
	}
	if cfg.Server.Public && cfg.Server.Transport == TransportHTTP && strings.TrimSpace(cfg.Server.AuthToken) == "" {
		return fmt.Errorf("CONFIG_INVALID: server.public requires server.auth_token\nSet env: SERVER_AUTH_TOKEN=...")
	}
	return nil
}

func describeFieldError(fe validator.FieldError) error {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("CONFIG_INVALID: %s is required", key)
	case "oneof":
		return fmt.Errorf("CONFIG_INVALID: %s=%v; allowed: %s", key, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "lte":
		return fmt.Errorf("CONFIG_INVALID: %s=%v; must be %s %s", key, fe.Value(), fe.Tag(), fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Errorf("CONFIG_INVALID: %s=%v fails %s=%s", key, fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("CONFIG_INVALID: %s=%v fails %s", key, fe.Value(), fe.Tag())
	}
}
