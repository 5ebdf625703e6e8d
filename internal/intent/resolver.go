package intent

import (
	"strings"

	"github.com/iWorld-y/trend_radar/internal/model"
)

type keyword struct {
	name string
	code model.CountryCode
}

// 表中顺序即优先级：输入同时包含多个国家时取靠前的
var keywordTable = []keyword{
	{"한국", model.KR},
	{"미국", model.US},
	{"일본", model.JP},
	{"홍콩", model.HK},
}

// Resolve 在输入中查找国家关键词（区分大小写的子串匹配）
func Resolve(input string) (model.CountryCode, bool) {
	for _, kw := range keywordTable {
		if strings.Contains(input, kw.name) {
			return kw.code, true
		}
	}
	return "", false
}

// Keywords 返回支持的国家关键词，顺序与匹配优先级一致
func Keywords() []string {
	names := make([]string, len(keywordTable))
	for i, kw := range keywordTable {
		names[i] = kw.name
	}
	return names
}
