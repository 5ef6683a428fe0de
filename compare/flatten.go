package compare

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Flatten 递归展开嵌套映射，父子键以 "." 连接。
// 标量叶子转为字符串，null 叶子为 nil，序列以 YAML 流式风格输出。
// 映射键按排序后的顺序处理。
func Flatten(root map[string]any) map[string]*string {
	out := make(map[string]*string)
	if len(root) == 0 {
		return out
	}
	var node yaml.Node
	if err := node.Encode(root); err != nil {
		return out
	}
	flattenNode(out, "", &node)
	return out
}

// FlattenNode 按文档顺序展开 YAML 映射节点。
// 多个键展开到同一路径时（如 "a.b" 与嵌套的 a: {b: ...}），后出现的覆盖先出现的。
// root 不是映射时返回 false。
func FlattenNode(root *yaml.Node) (map[string]*string, bool) {
	root = resolveNode(root)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, false
	}
	out := make(map[string]*string)
	flattenNode(out, "", root)
	return out, true
}

func flattenNode(out map[string]*string, parent string, mapping *yaml.Node) {
	// 合并键（<<）先展开，显式键随后覆盖
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if isMergeKey(mapping.Content[i]) {
			for _, src := range mergeSources(mapping.Content[i+1]) {
				flattenNode(out, parent, src)
			}
		}
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], resolveNode(mapping.Content[i+1])
		if isMergeKey(keyNode) {
			continue
		}
		path := nodeKey(keyNode)
		if parent != "" {
			path = parent + "." + path
		}
		if valueNode.Kind == yaml.MappingNode {
			flattenNode(out, path, valueNode)
			continue
		}
		out[path] = nodeLeaf(valueNode)
	}
}

// resolveNode 展开文档节点与别名
func resolveNode(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Value == "<<" && (n.Tag == "" || n.Tag == "!!merge")
}

func mergeSources(n *yaml.Node) []*yaml.Node {
	n = resolveNode(n)
	switch n.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{n}
	case yaml.SequenceNode:
		// 序列中靠前的映射优先，因此倒序展开
		var sources []*yaml.Node
		for i := len(n.Content) - 1; i >= 0; i-- {
			if m := resolveNode(n.Content[i]); m.Kind == yaml.MappingNode {
				sources = append(sources, m)
			}
		}
		return sources
	default:
		return nil
	}
}

func nodeKey(n *yaml.Node) string {
	n = resolveNode(n)
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return n.Value
	}
	return fmt.Sprint(v)
}

func nodeLeaf(n *yaml.Node) *string {
	var v any
	if err := n.Decode(&v); err != nil {
		s := n.Value
		return &s
	}
	return leafString(v)
}

func leafString(v any) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case bool:
		s = strconv.FormatBool(val)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case uint64:
		s = strconv.FormatUint(val, 10)
	case float64:
		s = strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		s = val.Format(time.RFC3339Nano)
	case []any:
		s = flowSequence(val)
	default:
		s = fmt.Sprint(val)
	}
	return &s
}

// flowSequence 把序列渲染为单行 [a, b]
func flowSequence(seq []any) string {
	var node yaml.Node
	if err := node.Encode(seq); err != nil {
		return fmt.Sprint(seq)
	}
	setFlowStyle(&node)
	data, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Sprint(seq)
	}
	return strings.TrimSpace(string(data))
}

func setFlowStyle(n *yaml.Node) {
	if n.Kind == yaml.SequenceNode || n.Kind == yaml.MappingNode {
		n.Style |= yaml.FlowStyle
	}
	for _, child := range n.Content {
		setFlowStyle(child)
	}
}
