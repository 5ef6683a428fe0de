package compare

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// 🗄️ 后端与查询语句
// =============================================================================

// Backend 配置中心类型
type Backend string

const (
	BackendApollo Backend = "apollo"
	BackendNacos  Backend = "nacos"
)

// IdentifierMode Apollo 使用 AppId 还是应用名称作为标识
type IdentifierMode string

const (
	IdentifierAppID IdentifierMode = "app_id"
	IdentifierName  IdentifierMode = "name"
)

// QueryVersion 连接测试使用的语句
const QueryVersion = "SELECT VERSION()"

const (
	queryApolloByAppID = "SELECT n.AppId, n.NamespaceName, i.`Key`, i.`Value`, i.DataChange_LastTime " +
		"FROM Item i INNER JOIN Namespace n ON i.NamespaceId = n.Id " +
		"WHERE i.IsDeleted = 0 AND i.`Key` != ''"

	queryApolloByName = "SELECT App.Name, n.NamespaceName, i.`Key`, i.`Value`, i.DataChange_LastTime " +
		"FROM Item i INNER JOIN Namespace n ON i.NamespaceId = n.Id " +
		"INNER JOIN App ON n.AppId = App.AppId " +
		"WHERE i.IsDeleted = 0 AND i.`Key` != ''"

	queryNacos = "SELECT data_id, group_id, content, gmt_modified FROM config_info"
)

// ErrUnsupportedBackend 未知的后端或标识模式
var ErrUnsupportedBackend = errors.New("unsupported backend")

// ParseBackend 解析后端名称，忽略大小写
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendApollo, BackendNacos:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, s)
	}
}

// QueryFor 返回后端与标识模式对应的查询语句
func QueryFor(backend Backend, mode IdentifierMode) (string, error) {
	switch backend {
	case BackendNacos:
		return queryNacos, nil
	case BackendApollo:
		switch mode {
		case IdentifierAppID, "":
			return queryApolloByAppID, nil
		case IdentifierName:
			return queryApolloByName, nil
		}
		return "", fmt.Errorf("%w: identifier mode %q", ErrUnsupportedBackend, mode)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}

// DecoderFor 返回后端对应的解码器
func DecoderFor(backend Backend, logger *zap.Logger) (Decoder, error) {
	switch backend {
	case BackendApollo:
		return NewFlatDecoder(logger), nil
	case BackendNacos:
		return NewDocumentDecoder(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}
