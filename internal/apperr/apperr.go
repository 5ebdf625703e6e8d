// Package apperr 定义请求处理过程中的错误分类。
//
// 错误基于 kratos errors：Code 对应 HTTP 语义，Reason 用于区分种类，
// errors.Is 按 Code + Reason 比较。
package apperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
)

const (
	ReasonUnsupportedCountryInput = "UNSUPPORTED_COUNTRY_INPUT"
	ReasonUnsupportedCountryCode  = "UNSUPPORTED_COUNTRY_CODE"
	ReasonEmptyTrendResult        = "EMPTY_TREND_RESULT"
	ReasonExternalServiceFailure  = "EXTERNAL_SERVICE_FAILURE"

	metaSource  = "source"
	metaCountry = "country"
)

// 外部服务来源
const (
	SourceTrends = "trends"
	SourceSearch = "search"
	SourceLLM    = "llm"
)

var (
	ErrUnsupportedCountryInput = errors.New(http.StatusBadRequest, ReasonUnsupportedCountryInput, "unsupported country input")
	ErrUnsupportedCountryCode  = errors.New(http.StatusBadRequest, ReasonUnsupportedCountryCode, "unsupported country code")
	ErrEmptyTrendResult        = errors.New(http.StatusNotFound, ReasonEmptyTrendResult, "empty trend result")
	ErrExternalServiceFailure  = errors.New(http.StatusServiceUnavailable, ReasonExternalServiceFailure, "external service failure")
)

// UnsupportedCountryInput 用户输入中找不到支持的国家关键词
func UnsupportedCountryInput(keywords []string) *errors.Error {
	return errors.New(http.StatusBadRequest, ReasonUnsupportedCountryInput,
		fmt.Sprintf("지원되지 않는 국가입니다. %s 중에서 선택해 주세요.", strings.Join(keywords, ", ")))
}

// EmptyTrendResult 趋势源没有返回任何趋势词
func EmptyTrendResult(code string) *errors.Error {
	return errors.New(http.StatusNotFound, ReasonEmptyTrendResult,
		fmt.Sprintf("%s의 트렌드를 가져오는 데 실패했습니다.", code)).
		WithMetadata(map[string]string{metaCountry: code})
}

// UnsupportedCountryCode 趋势模块收到未映射的国家代码
func UnsupportedCountryCode(code string) *errors.Error {
	return errors.New(http.StatusBadRequest, ReasonUnsupportedCountryCode,
		fmt.Sprintf("Unsupported country code: %s", code))
}

// ExternalService 包装外部服务（趋势、搜索、LLM）调用失败
func ExternalService(source string, cause error) *errors.Error {
	msg := fmt.Sprintf("%s service failure", source)
	if cause != nil {
		msg = fmt.Sprintf("%s service failure: %v", source, cause)
	}
	return errors.New(http.StatusServiceUnavailable, ReasonExternalServiceFailure, msg).
		WithCause(cause).
		WithMetadata(map[string]string{metaSource: source})
}

func IsUnsupportedCountryInput(err error) bool {
	return errors.Reason(err) == ReasonUnsupportedCountryInput
}

func IsEmptyTrendResult(err error) bool {
	return errors.Reason(err) == ReasonEmptyTrendResult
}

func IsUnsupportedCountryCode(err error) bool {
	return errors.Reason(err) == ReasonUnsupportedCountryCode
}

func IsExternalServiceFailure(err error) bool {
	return errors.Reason(err) == ReasonExternalServiceFailure
}

// Source 返回外部服务失败的来源，其他错误返回空串
func Source(err error) string {
	e := errors.FromError(err)
	if e == nil || e.Reason != ReasonExternalServiceFailure {
		return ""
	}
	return e.Metadata[metaSource]
}

// Message 返回面向用户的错误信息
func Message(err error) string {
	if e := errors.FromError(err); e != nil && e.Reason != "" {
		return e.Message
	}
	return err.Error()
}
