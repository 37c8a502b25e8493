// Package locale 解析请求语言。参考资料只有韩语与英语两种标题，其余语言一律回退到韩语。
package locale

import (
	"sort"
	"strconv"
	"strings"
)

// Language 是受支持的界面语言
type Language string

const (
	Korean  Language = "ko"
	English Language = "en"

	// Default 用于无法识别任何偏好的请求
	Default = Korean
)

// Parse 识别 ko、ko-KR、kr、en-US 等写法，大小写不敏感
func Parse(raw string) (Language, bool) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case tag == "":
		return "", false
	case tag == "kr" || tag == "ko" || strings.HasPrefix(tag, "ko-") || strings.HasPrefix(tag, "ko_"):
		return Korean, true
	case tag == "en" || strings.HasPrefix(tag, "en-") || strings.HasPrefix(tag, "en_"):
		return English, true
	}
	return "", false
}

// FromCountry 将 CDN 提供的国家代码映射为语言：KR 为韩语，其他国家为英语
func FromCountry(code string) (Language, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == "XX" {
		return "", false
	}
	if code == "KR" {
		return Korean, true
	}
	return English, true
}

// FromAcceptLanguage 按 q 值从高到低挑选第一个受支持的语言，q=0 的条目被忽略
func FromAcceptLanguage(header string) (Language, bool) {
	type candidate struct {
		language Language
		weight   float64
	}

	var candidates []candidate
	for _, part := range strings.Split(header, ",") {
		tag, params, _ := strings.Cut(part, ";")
		language, ok := Parse(tag)
		if !ok {
			continue
		}
		weight := 1.0
		if q, found := strings.CutPrefix(strings.TrimSpace(params), "q="); found {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
			if err != nil {
				continue
			}
			weight = parsed
		}
		if weight <= 0 {
			continue
		}
		candidates = append(candidates, candidate{language: language, weight: weight})
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].weight > candidates[j].weight
	})
	return candidates[0].language, true
}

// Tag 返回 Content-Language 使用的 BCP 47 标签
func (l Language) Tag() string {
	if l == English {
		return "en-US"
	}
	return "ko-KR"
}

// Pick 选择与语言对应的文案，缺失时回退到另一种语言
func (l Language) Pick(english, korean string) string {
	if l == English {
		if english != "" {
			return english
		}
		return korean
	}
	if korean != "" {
		return korean
	}
	return english
}
