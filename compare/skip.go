package compare

// SkipSet 被手工标记为忽略的组合键集合
type SkipSet map[CompositeKey]struct{}

// NewSkipSet 从组合键构造集合
func NewSkipSet(keys ...CompositeKey) SkipSet {
	set := make(SkipSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Has 判断组合键是否被忽略
func (s SkipSet) Has(key CompositeKey) bool {
	_, ok := s[key]
	return ok
}

// Annotate 按组合键精确匹配更新每条记录的忽略标记
func Annotate(records map[CompositeKey]*Record, skip SkipSet) {
	for key, rec := range records {
		rec.Skipped = skip.Has(key)
	}
}
