package validator

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
)

// gin binding validator 的翻译器，错误信息根据language返回中/英文

var (
	Trans ut.Translator
	once  sync.Once
)

// LazyInitGinValidator 初始化gin的validator翻译器，重复调用只会生效一次
func LazyInitGinValidator(language string) {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		zhT := zh.New()
		enT := en.New()
		uni := ut.New(enT, zhT, enT)

		var found bool
		Trans, found = uni.GetTranslator(language)
		if !found {
			Trans, _ = uni.GetTranslator("en")
		}

		switch language {
		case "zh":
			_ = zhTranslations.RegisterDefaultTranslations(v, Trans)
		default:
			_ = enTranslations.RegisterDefaultTranslations(v, Trans)
		}
	})
}

// TranslateErr 将validator错误翻译成可读信息
func TranslateErr(err error) string {
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || Trans == nil {
		return err.Error()
	}
	for _, e := range errs {
		return e.Translate(Trans)
	}
	return err.Error()
}
