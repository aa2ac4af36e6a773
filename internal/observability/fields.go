package observability

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// String constructs a string log field.
func String(key, value string) zap.Field { return zap.String(key, value) }

// Int constructs an int log field.
func Int(key string, value int) zap.Field { return zap.Int(key, value) }

// Uint64 constructs a uint64 log field.
func Uint64(key string, value uint64) zap.Field { return zap.Uint64(key, value) }

// Float64 constructs a float64 log field.
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }

// Bool constructs a bool log field.
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

// Duration constructs a duration log field.
func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }

// Stringer constructs a log field from anything with a String method,
// e.g. decimal.Decimal costs.
func Stringer(key string, value fmt.Stringer) zap.Field { return zap.Stringer(key, value) }

// Error constructs an error log field under the "error" key.
func Error(err error) zap.Field { return zap.Error(err) }
