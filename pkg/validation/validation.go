// Package validation wires custom types into gin's request binding
// validator so struct tags like "gt=0" work on decimal fields.
package validation

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var once sync.Once

// Register installs type adapters on the binding validator. Safe to call
// from multiple packages; only the first call has effect.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(decimalValuer, decimal.Decimal{})
	})
}

// decimalValuer converts decimal.Decimal to float64 so the numeric
// comparison tags (gt, gte, lt, lte) apply to monetary fields.
func decimalValuer(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}
