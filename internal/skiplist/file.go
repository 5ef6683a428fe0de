package skiplist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/configcomparer/compare"
)

// =============================================================================
// 📄 文件存储
// =============================================================================

// FileStore 每行一个组合键的文本文件，写入时先写临时文件再原子替换
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore 创建文件存储，文件不存在时视为空列表
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With(zap.String("component", "skiplist_file"), zap.String("path", path)),
	}
}

// Load 读取全部组合键，无法解析的行记录告警后跳过
func (s *FileStore) Load(ctx context.Context) ([]compare.CompositeKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(set), nil
}

// Add 加入组合键
func (s *FileStore) Add(ctx context.Context, keys ...compare.CompositeKey) error {
	return s.update(ctx, func(set map[compare.CompositeKey]struct{}) {
		for _, k := range keys {
			set[k] = struct{}{}
		}
	})
}

// Remove 移除组合键
func (s *FileStore) Remove(ctx context.Context, keys ...compare.CompositeKey) error {
	return s.update(ctx, func(set map[compare.CompositeKey]struct{}) {
		for _, k := range keys {
			delete(set, k)
		}
	})
}

// Close 文件存储无需释放资源
func (s *FileStore) Close() error { return nil }

func (s *FileStore) update(ctx context.Context, mutate func(map[compare.CompositeKey]struct{})) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.read(ctx)
	if err != nil {
		return err
	}
	mutate(set)
	return s.write(sortedKeys(set))
}

func (s *FileStore) read(ctx context.Context) (map[compare.CompositeKey]struct{}, error) {
	set := make(map[compare.CompositeKey]struct{})

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open skip list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, err := parseLine(line)
		if err != nil {
			s.logger.Warn("unparseable skip list entry ignored", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		set[key] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read skip list: %w", err)
	}
	return set, nil
}

func (s *FileStore) write(keys []compare.CompositeKey) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create skip list directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".skiplist-*")
	if err != nil {
		return fmt.Errorf("create temp skip list: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, k := range keys {
		w.WriteString(fileLine(k))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write skip list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp skip list: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace skip list: %w", err)
	}

	s.logger.Debug("skip list saved", zap.Int("entries", len(keys)))
	return nil
}

// fileLine 能无歧义表示时沿用旧版 a+b+c 格式，否则使用长度前缀编码
func fileLine(k compare.CompositeKey) string {
	if legacy, ok := k.LegacyString(); ok {
		return legacy
	}
	return k.String()
}

func sortedKeys(set map[compare.CompositeKey]struct{}) []compare.CompositeKey {
	keys := make([]compare.CompositeKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
