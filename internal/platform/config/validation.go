package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their koanf key so a message names the
// YAML path or APP_ variable the operator has to fix.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	_ = v.RegisterValidation("cookiename", func(fl validator.FieldLevel) bool {
		return validCookieName(fl.Field().String())
	})

	return v
}

// Validate checks field rules first, then the rules that span sections.
// The service refuses to start on any failure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	var problems []string

	if c.Client.Retry.MaxInterval < c.Client.Retry.InitialInterval {
		problems = append(problems, "client.retry.max_interval must not be below client.retry.initial_interval")
	}

	if c.Sync.Enabled && c.Sync.Interval <= c.Client.Timeout {
		problems = append(problems, "sync.interval must exceed client.timeout so one remote call fits in a cycle")
	}

	if c.Sync.NotificationTTL >= c.Sync.Interval {
		problems = append(problems, "sync.notification_ttl must be shorter than sync.interval")
	}

	if c.Session.Secure && c.App.Environment == "local" {
		problems = append(problems, "session.secure needs HTTPS and cannot be set in the local environment")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(problems, "\n  "))
	}

	return nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		errs = append(errs, formatFieldError(e))
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
}

func formatFieldError(e validator.FieldError) string {
	field := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, formatCondition(e.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "cookiename":
		return fmt.Sprintf("%s must be a cookie name (letters, digits, and !#$%%&'*+-.^_`|~)", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}

// formatFieldPath drops the root struct name: "Config.server.port" becomes
// "server.port".
func formatFieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return path
}

// formatCondition turns a required_if param such as "Driver sqlite" into
// "driver is sqlite".
func formatCondition(param string) string {
	field, value, found := strings.Cut(param, " ")
	if !found {
		return param
	}

	return strings.ToLower(field) + " is " + value
}

// validCookieName accepts RFC 6265 token characters.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", r):
		default:
			return false
		}
	}

	return true
}
