package validator

import (
	"ctchen222/solo-tic-tac-toe/internal/game"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so error frames match what the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Tags are fixed at init; a registration failure is a programming error.
	if err := validate.RegisterValidation("mark", isMark); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("cell", isCell); err != nil {
		panic(err)
	}
}

// GetValidator returns the shared validator for websocket frames.
func GetValidator() *validator.Validate {
	return validate
}

// isMark accepts the strings a player may choose: "X" or "O".
func isMark(fl validator.FieldLevel) bool {
	_, err := game.ParseMark(fl.Field().String())
	return err == nil
}

// isCell accepts board indexes.
func isCell(fl validator.FieldLevel) bool {
	i := fl.Field().Int()
	return i >= 0 && i < game.BoardSize
}
