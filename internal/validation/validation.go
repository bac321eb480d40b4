// Package validation plugs English error messages into gin's request
// binding.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once     sync.Once
	trans    ut.Translator
	setupErr error
)

// Register configures gin's validator engine. Safe to call more than once.
func Register() error {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			setupErr = errors.New("validation: unexpected binding engine")
			return
		}

		v.RegisterTagNameFunc(jsonFieldName)

		locale := en.New()
		uni := ut.New(locale, locale)
		trans, _ = uni.GetTranslator("en")
		setupErr = entranslations.RegisterDefaultTranslations(v, trans)
	})
	return setupErr
}

// Messages flattens a binding error into field -> message pairs. Errors
// that are not validation failures are reported under "body".
func Messages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "request body must be valid JSON"}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if trans != nil {
			out[fe.Field()] = fe.Translate(trans)
			continue
		}
		out[fe.Field()] = fe.Error()
	}
	return out
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
