package compare

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🧩 查询结果行
// =============================================================================

// Row 查询结果映射后的强类型行
type Row interface {
	identifier() string
}

// FlatRow Apollo 的一行：一行即一个配置项
type FlatRow struct {
	Identifier string
	Namespace  string
	Key        string
	Value      *string
	Modified   time.Time
}

func (r FlatRow) identifier() string { return r.Identifier }

// DocumentRow Nacos 的一行：content 为整份 YAML 文档
type DocumentRow struct {
	Identifier string
	Namespace  string
	Content    string
	Modified   time.Time
}

func (r DocumentRow) identifier() string { return r.Identifier }

// RowScanner 由 *sql.Rows 满足
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanFunc 把结果集当前行映射为强类型行
type ScanFunc func(RowScanner) (Row, error)

// Decoder 把强类型行解码为各环境的局部结果
type Decoder interface {
	// ScanRow 查询结束后立即把当前行映射为强类型行
	ScanRow(rs RowScanner) (Row, error)
	// Decode 解码一行，失败时返回空结果并记录告警，不会中断整次比对
	Decode(row Row, env string, rule NameRule) []Fragment
}

// =============================================================================
// 📄 Apollo：一行一条
// =============================================================================

// FlatDecoder 解码 Apollo Item 行
type FlatDecoder struct {
	logger *zap.Logger
}

// NewFlatDecoder 创建 Apollo 解码器
func NewFlatDecoder(logger *zap.Logger) *FlatDecoder {
	return &FlatDecoder{logger: logger.With(zap.String("component", "flat_decoder"))}
}

// ScanRow 读取 (identifier, namespace, key, value, modified)
func (d *FlatDecoder) ScanRow(rs RowScanner) (Row, error) {
	var (
		row   FlatRow
		value sql.NullString
	)
	if err := rs.Scan(&row.Identifier, &row.Namespace, &row.Key, &value, &row.Modified); err != nil {
		return nil, fmt.Errorf("scan apollo row: %w", err)
	}
	if value.Valid {
		row.Value = &value.String
	}
	return row, nil
}

// Decode 产生恰好一条局部结果
func (d *FlatDecoder) Decode(row Row, env string, rule NameRule) []Fragment {
	flat, ok := row.(FlatRow)
	if !ok {
		d.logger.Warn("unexpected row shape, row skipped",
			zap.String("environment", env),
			zap.String("type", fmt.Sprintf("%T", row)),
		)
		return nil
	}

	return []Fragment{{
		Key: CompositeKey{
			Identifier: rule.Normalize(flat.Identifier),
			Namespace:  flat.Namespace,
			Key:        flat.Key,
		},
		Env:      env,
		Value:    flat.Value,
		Modified: flat.Modified.Format(ModifiedLayout),
	}}
}

// =============================================================================
// 🌲 Nacos：一份 YAML 展开为多条
// =============================================================================

// DocumentDecoder 解码 Nacos config_info 行
type DocumentDecoder struct {
	logger *zap.Logger
}

// NewDocumentDecoder 创建 Nacos 解码器
func NewDocumentDecoder(logger *zap.Logger) *DocumentDecoder {
	return &DocumentDecoder{logger: logger.With(zap.String("component", "document_decoder"))}
}

// ScanRow 读取 (data_id, group_id, content, gmt_modified)
func (d *DocumentDecoder) ScanRow(rs RowScanner) (Row, error) {
	var (
		row     DocumentRow
		content sql.NullString
	)
	if err := rs.Scan(&row.Identifier, &row.Namespace, &content, &row.Modified); err != nil {
		return nil, fmt.Errorf("scan nacos row: %w", err)
	}
	row.Content = content.String
	return row, nil
}

// Decode 解析 YAML 并按点号路径展开，一行可能产生零到多条局部结果
func (d *DocumentDecoder) Decode(row Row, env string, rule NameRule) []Fragment {
	doc, ok := row.(DocumentRow)
	if !ok {
		d.logger.Warn("unexpected row shape, row skipped",
			zap.String("environment", env),
			zap.String("type", fmt.Sprintf("%T", row)),
		)
		return nil
	}

	var parsed yaml.Node
	if err := yaml.Unmarshal([]byte(doc.Content), &parsed); err != nil {
		d.logger.Warn("invalid yaml content, row skipped",
			zap.String("environment", env),
			zap.String("identifier", doc.Identifier),
			zap.String("namespace", doc.Namespace),
			zap.Error(err),
		)
		return nil
	}

	leaves, ok := FlattenNode(&parsed)
	if !ok || len(resolveNode(&parsed).Content) == 0 {
		d.logger.Warn("yaml root is not a non-empty mapping, row skipped",
			zap.String("environment", env),
			zap.String("identifier", doc.Identifier),
			zap.String("namespace", doc.Namespace),
			zap.String("root_kind", nodeKind(&parsed)),
		)
		return nil
	}

	identifier := rule.Normalize(doc.Identifier)
	modified := doc.Modified.Format(ModifiedLayout)

	fragments := make([]Fragment, 0, len(leaves))
	for key, value := range leaves {
		fragments = append(fragments, Fragment{
			Key:      CompositeKey{Identifier: identifier, Namespace: doc.Namespace, Key: key},
			Env:      env,
			Value:    value,
			Modified: modified,
		})
	}
	return fragments
}

func nodeKind(n *yaml.Node) string {
	n = resolveNode(n)
	if n == nil {
		return "empty"
	}
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return n.Tag
	default:
		return "empty"
	}
}
