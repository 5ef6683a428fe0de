package compare

import (
	"strings"

	"github.com/BaSui01/configcomparer/config"
)

// =============================================================================
// 🏷️ 应用名称修正
// =============================================================================

// NameRule 应用名称修正规则，按 前缀 → 后缀 → 精确替换 的顺序生效
type NameRule struct {
	Prefixes     []string
	Suffixes     []string
	Replacements map[string]string
}

// NameRuleFromConfig 从配置构造规则
func NameRuleFromConfig(cfg config.NamesConfig) NameRule {
	return NameRule{
		Prefixes:     cfg.Prefixes,
		Suffixes:     cfg.Suffixes,
		Replacements: cfg.Replacements,
	}
}

// NameRuleFromFields 兼容旧版设置：前缀、后缀以空白分隔，
// 替换前后的名称按位置一一对应，多余的项被忽略
func NameRuleFromFields(prefixes, suffixes, before, after string) NameRule {
	search := strings.Fields(before)
	replace := strings.Fields(after)
	replacements := make(map[string]string, len(search))
	for i := 0; i < len(search) && i < len(replace); i++ {
		replacements[search[i]] = replace[i]
	}
	return NameRule{
		Prefixes:     strings.Fields(prefixes),
		Suffixes:     strings.Fields(suffixes),
		Replacements: replacements,
	}
}

// Normalize 修正应用名称。每一步最多生效一次，替换表匹配的是去除前后缀之后的名称。
func (r NameRule) Normalize(name string) string {
	for _, prefix := range r.Prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	for _, suffix := range r.Suffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	if replacement, ok := r.Replacements[name]; ok {
		return replacement
	}
	return name
}
