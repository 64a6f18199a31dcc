/*
 * @module service/config/validate
 * @description 配置结构校验，缺失必填项与非法取值分别映射为哨兵错误
 * @architecture 进程内共享的校验器实例
 * @rules
 *   - required 失败报告为 ErrMissingField，其余失败为 ErrInvalidField
 *   - 错误信息使用 yaml 字段路径
 * @dependencies github.com/go-playground/validator/v10, github.com/robfig/cron/v3
 * @refs config.go
 */

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// 错误信息使用 yaml 字段名
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("cronspec", validateCronSpec)
	})
	return validate
}

// validateCronSpec 标准五段 cron 表达式
func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// Validate 校验配置，必填项缺失返回 ErrMissingField，取值无效返回 ErrInvalidField
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: 配置为空", ErrMissingField)
	}
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	// 只报告第一项，必填缺失优先
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return fmt.Errorf("%w: %s", ErrMissingField, fieldPath(fe))
		}
	}
	fe := verrs[0]
	return fmt.Errorf("%w: %s (规则 %s)", ErrInvalidField, fieldPath(fe), ruleOf(fe))
}

// fieldPath 去掉根结构名的字段路径，如 run.n_eval
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleOf(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
