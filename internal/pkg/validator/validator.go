package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps go-playground validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface
// 校验失败时返回翻译后的错误消息而不是 go-playground 的原始文案
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(400, TranslateValidationError(err))
	}
	return nil
}

// New creates a new custom validator instance
func New() echo.Validator {
	return &CustomValidator{
		validator: validator.New(),
	}
}
