package compare

import (
	"sort"
	"time"
)

// =============================================================================
// 📋 统一记录
// =============================================================================

// Status 一致性状态
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusFully        Status = "fully"
	StatusPartially    Status = "partially"
	StatusInconsistent Status = "inconsistent"
)

// Statuses 返回全部一致性状态
func Statuses() []Status {
	return []Status{StatusUnknown, StatusFully, StatusPartially, StatusInconsistent}
}

// ModifiedLayout 最后修改时间的展示格式
const ModifiedLayout = "2006-01-02 15:04:05"

// EnvValue 单个环境中的取值。Value 为 nil 表示该环境查询成功但没有此配置项。
type EnvValue struct {
	Value    *string `json:"value"`
	Modified *string `json:"modified"`
}

// Fragment 解码后的局部结果，属于某个环境的一条配置
type Fragment struct {
	Key      CompositeKey
	Env      string
	Value    *string
	Modified string
}

// Record 跨环境合并后的一条配置。
// Values 只包含查询成功的环境，未成功查询的环境没有条目。
type Record struct {
	Key         CompositeKey        `json:"-"`
	Values      map[string]EnvValue `json:"values"`
	Consistency Status              `json:"consistency"`
	Skipped     bool                `json:"skipped"`
}

func newRecord(key CompositeKey) *Record {
	return &Record{
		Key:         key,
		Values:      make(map[string]EnvValue),
		Consistency: StatusUnknown,
	}
}

// set 写入一个环境的取值
func (r *Record) set(f Fragment) {
	modified := f.Modified
	r.Values[f.Env] = EnvValue{Value: f.Value, Modified: &modified}
}

// PresentValues 返回有非空取值的环境 → 值
func (r *Record) PresentValues() map[string]string {
	present := make(map[string]string, len(r.Values))
	for env, v := range r.Values {
		if v.Value != nil {
			present[env] = *v.Value
		}
	}
	return present
}

// Value 返回指定环境的取值，ok=false 表示没有非空值
func (r *Record) Value(env string) (string, bool) {
	v, ok := r.Values[env]
	if !ok || v.Value == nil {
		return "", false
	}
	return *v.Value, true
}

// EnvSet 环境名集合
type EnvSet map[string]struct{}

// NewEnvSet 从环境名构造集合
func NewEnvSet(envs ...string) EnvSet {
	set := make(EnvSet, len(envs))
	for _, env := range envs {
		set[env] = struct{}{}
	}
	return set
}

// Has 判断是否包含
func (s EnvSet) Has(env string) bool {
	_, ok := s[env]
	return ok
}

// Sorted 返回排序后的环境名
func (s EnvSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for env := range s {
		out = append(out, env)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// 🏁 一次比对的结果
// =============================================================================

// Run 一次比对的完整输出，运行结束后由调用方持有
type Run struct {
	ID         string                   `json:"id"`
	Backend    Backend                  `json:"backend"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Records    map[CompositeKey]*Record `json:"-"`

	// Environments 环境名 → 是否查询成功，未启用的环境为 false
	Environments map[string]bool `json:"environments"`
}

// Active 返回查询成功的环境集合
func (r *Run) Active() EnvSet {
	set := make(EnvSet)
	for env, ok := range r.Environments {
		if ok {
			set[env] = struct{}{}
		}
	}
	return set
}

// Usable 至少一个环境查询成功时为 true
func (r *Run) Usable() bool {
	return len(r.Active()) > 0
}

// Sorted 按组合键排序返回符合过滤条件的记录
func (r *Run) Sorted(filter Filter) []*Record {
	out := make([]*Record, 0, len(r.Records))
	for _, rec := range r.Records {
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// Counts 统计各一致性状态的记录数
func (r *Run) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, rec := range r.Records {
		counts[rec.Consistency]++
	}
	return counts
}
