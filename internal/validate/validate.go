// Package validate wraps a single shared validator instance so struct
// tag caches are built once per process.
package validate

import (
	"context"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Struct validates s against its `validate` struct tags.
func Struct(ctx context.Context, s any) error {
	return validate.StructCtx(ctx, s)
}
