package compare

import "sort"

// =============================================================================
// 🔁 跨服务重复配置
// =============================================================================

// SharedSource 共享取值所在的服务与分组
type SharedSource struct {
	Identifier string `json:"identifier"`
	Namespace  string `json:"namespace"`
}

// SharedValue 同一环境中被多个服务或分组重复配置的 键+值
type SharedValue struct {
	Key     string         `json:"key"`
	Value   string         `json:"value"`
	Sources []SharedSource `json:"sources"`
}

type sharedGroup struct {
	key   string
	value string
}

// SharedValues 按环境找出配置键与取值都相同、出现在两条及以上记录中的配置。
// 只统计符合 filter 的记录，空值不参与。每个查询成功的环境都有条目，没有重复时为空切片。
func (r *Run) SharedValues(filter Filter) map[string][]SharedValue {
	records := r.Sorted(filter)
	out := make(map[string][]SharedValue)

	for _, env := range r.Active().Sorted() {
		groups := make(map[sharedGroup][]SharedSource)
		for _, rec := range records {
			value, ok := rec.Value(env)
			if !ok {
				continue
			}
			g := sharedGroup{key: rec.Key.Key, value: value}
			groups[g] = append(groups[g], SharedSource{
				Identifier: rec.Key.Identifier,
				Namespace:  rec.Key.Namespace,
			})
		}

		shared := make([]SharedValue, 0)
		for g, sources := range groups {
			if len(sources) < 2 {
				continue
			}
			shared = append(shared, SharedValue{Key: g.key, Value: g.value, Sources: sources})
		}
		sort.Slice(shared, func(i, j int) bool {
			if shared[i].Key != shared[j].Key {
				return shared[i].Key < shared[j].Key
			}
			return shared[i].Value < shared[j].Value
		})
		out[env] = shared
	}
	return out
}
