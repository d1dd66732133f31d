package frame

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ivlev/photoframe/internal/errs"
)

// spanTolerance absorbs float error in layouts such as 0.7 + 0.3.
const spanTolerance = 1e-9

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func templateValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("preset", func(fl validator.FieldLevel) bool {
			_, ok := Presets[fl.Field().String()]
			return ok
		})
		validate.RegisterStructValidation(slotSpan, Slot{})
	})
	return validate
}

func slotSpan(sl validator.StructLevel) {
	s := sl.Current().Interface().(Slot)
	if s.X+s.Width > 1+spanTolerance {
		sl.ReportError(s.Width, "Width", "width", "xspan", "")
	}
	if s.Y+s.Height > 1+spanTolerance {
		sl.ReportError(s.Height, "Height", "height", "yspan", "")
	}
}

// Validate applies the preset size and rejects templates whose slots or
// decorations leave the unit square.
func Validate(t *Template) error {
	if t == nil {
		return errs.New(errs.KindInvalidConfiguration, "validate template", fmt.Errorf("nil template"))
	}
	t.applyPreset()
	if err := templateValidator().Struct(t); err != nil {
		return errs.New(errs.KindInvalidConfiguration, "validate template "+t.ID, err)
	}
	return nil
}

// Checked validates a copy of t with its preset size applied and returns
// the copy. t itself is never written, so callers may share it.
func Checked(t *Template) (*Template, error) {
	if t == nil {
		return nil, Validate(nil)
	}
	c := *t
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
