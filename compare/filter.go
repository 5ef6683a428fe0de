package compare

import (
	"fmt"
	"strings"
)

// =============================================================================
// 🔍 结果过滤
// =============================================================================

// CategorySkipped 过滤类别：已被忽略的记录
const CategorySkipped = "skip"

// Filter 展示层过滤条件，零值匹配全部记录。
// Hide 中的类别（一致性状态或 skip）命中即隐藏，Invert 反转为只显示命中的记录；
// Identifier 非空时要求应用标识完全相同；Search 对标识、命名空间、键、
// 各环境取值与修改时间做不区分大小写的子串匹配。
type Filter struct {
	Hide       []string
	Invert     bool
	Identifier string
	Search     string
}

// ParseCategories 解析 "fully+partially+skip" 或逗号分隔的类别列表
func ParseCategories(s string) ([]string, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if !validCategory(f) {
			return nil, fmt.Errorf("unknown filter category %q", f)
		}
		out = append(out, f)
	}
	return out, nil
}

func validCategory(c string) bool {
	if c == CategorySkipped {
		return true
	}
	for _, s := range Statuses() {
		if string(s) == c {
			return true
		}
	}
	return false
}

// Match 判断记录是否应当显示
func (f Filter) Match(rec *Record) bool {
	if f.hidden(rec) {
		return false
	}
	if f.Identifier != "" && rec.Key.Identifier != f.Identifier {
		return false
	}
	return f.searchMatch(rec)
}

func (f Filter) hidden(rec *Record) bool {
	if len(f.Hide) == 0 {
		return f.Invert
	}
	hit := false
	for _, c := range f.Hide {
		if (c == CategorySkipped && rec.Skipped) || Status(c) == rec.Consistency {
			hit = true
			break
		}
	}
	return hit != f.Invert
}

func (f Filter) searchMatch(rec *Record) bool {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	if needle == "" {
		return true
	}
	texts := []string{rec.Key.Identifier, rec.Key.Namespace, rec.Key.Key, string(rec.Consistency)}
	for _, v := range rec.Values {
		if v.Value != nil {
			texts = append(texts, *v.Value)
		}
		if v.Modified != nil {
			texts = append(texts, *v.Modified)
		}
	}
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}
