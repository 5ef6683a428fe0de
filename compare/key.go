package compare

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedKey 组合键文本无法解析
var ErrMalformedKey = errors.New("malformed composite key")

// CompositeKey 标识一条跨环境配置项，直接作为 map 键使用
type CompositeKey struct {
	Identifier string
	Namespace  string
	Key        string
}

// String 返回长度前缀编码，任何分隔符出现在字段中都不会产生歧义
func (k CompositeKey) String() string {
	var b strings.Builder
	for _, part := range [...]string{k.Identifier, k.Namespace, k.Key} {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// MarshalText 实现 encoding.TextMarshaler
func (k CompositeKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (k *CompositeKey) UnmarshalText(text []byte) error {
	parsed, err := ParseCompositeKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseCompositeKey 解析 String 产生的编码
func ParseCompositeKey(s string) (CompositeKey, error) {
	var parts [3]string
	rest := s
	for i := range parts {
		colon := strings.IndexByte(rest, ':')
		if colon <= 0 {
			return CompositeKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
		}
		n, err := strconv.Atoi(rest[:colon])
		if err != nil || n < 0 || colon+1+n > len(rest) {
			return CompositeKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
		}
		parts[i] = rest[colon+1 : colon+1+n]
		rest = rest[colon+1+n:]
	}
	if rest != "" {
		return CompositeKey{}, fmt.Errorf("%w: trailing data in %q", ErrMalformedKey, s)
	}
	return CompositeKey{Identifier: parts[0], Namespace: parts[1], Key: parts[2]}, nil
}

// ParseLegacyKey 解析旧版 "identifier+namespace+key" 格式，
// 只有恰好切分为三段时才接受
func ParseLegacyKey(s string) (CompositeKey, error) {
	parts := strings.Split(s, "+")
	if len(parts) != 3 {
		return CompositeKey{}, fmt.Errorf("%w: ambiguous legacy key %q", ErrMalformedKey, s)
	}
	return CompositeKey{Identifier: parts[0], Namespace: parts[1], Key: parts[2]}, nil
}

// LegacyString 返回旧版 "identifier+namespace+key" 文本。
// 任一字段含 "+" 或换行，或文本会被误读为长度前缀编码时 ok 为 false。
func (k CompositeKey) LegacyString() (string, bool) {
	for _, part := range [...]string{k.Identifier, k.Namespace, k.Key} {
		if strings.ContainsAny(part, "+\r\n") {
			return "", false
		}
	}
	s := k.Identifier + "+" + k.Namespace + "+" + k.Key
	if _, err := ParseCompositeKey(s); err == nil {
		return "", false
	}
	return s, true
}

// Less 按 identifier、namespace、key 的顺序比较
func (k CompositeKey) Less(other CompositeKey) bool {
	if k.Identifier != other.Identifier {
		return k.Identifier < other.Identifier
	}
	if k.Namespace != other.Namespace {
		return k.Namespace < other.Namespace
	}
	return k.Key < other.Key
}
