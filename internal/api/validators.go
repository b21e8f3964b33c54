package api

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"studyroom-backend/internal/parse"
)

var registerOnce sync.Once

// RegisterValidators adds the "clock" (HH:MM) and "date" (YYYY-MM-DD) tags to
// gin's validator. It is safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		if err = v.RegisterValidation("clock", validClock); err != nil {
			return
		}
		err = v.RegisterValidation("date", validDate)
	})
	return err
}

func validClock(fl validator.FieldLevel) bool {
	_, err := parse.ParseClock(fl.Field().String())
	return err == nil
}

func validDate(fl validator.FieldLevel) bool {
	_, err := parse.ParseDate(fl.Field().String())
	return err == nil
}
