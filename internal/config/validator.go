// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals and defaults the merged Koanf tree.  Any tag mismatch or
// validation error aborts startup, ensuring the binary never runs with
// partial, malformed, or missing configuration.
//
// Beyond the built-in rules (`required`, `url`, `oneof`, `timezone`, …) one
// cross-field rule lives here: messaging mode needs a recipient with at
// least ten digits, since the deep link is useless without one.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
//   • Section dividers use the simple comment style requested.

package config

import (
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = func() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(deliveryRules, Delivery{})
	return val
}()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

//
// custom rules
//

func deliveryRules(sl validator.StructLevel) {
	d := sl.Current().Interface().(Delivery)
	if d.Mode != "messaging" || d.Recipient == "" {
		return
	}
	n := 0
	for _, r := range d.Recipient {
		if unicode.IsDigit(r) {
			n++
		}
	}
	if n < 10 {
		sl.ReportError(d.Recipient, "Recipient", "recipient", "phone", "")
	}
}
