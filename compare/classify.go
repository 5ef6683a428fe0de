package compare

import "github.com/BaSui01/configcomparer/config"

// =============================================================================
// ⚖️ 一致性判定
// =============================================================================

// Classify 判定一条配置在查询成功的环境之间是否一致。
// values 为 环境 → 非空取值，active 为本次查询成功的环境集合，
// 不在 active 中的环境即使出现在 values 里也不参与判定。
func Classify(values map[string]string, active EnvSet) Status {
	present := make(map[string]string, len(values))
	for env, v := range values {
		if active.Has(env) {
			present[env] = v
		}
	}

	if len(present) <= 1 {
		return StatusUnknown
	}

	// 所有成功环境都有值且完全相同才算完全一致，缺失任何一个都不行
	if allEqual(present) && len(present) == len(active) {
		return StatusFully
	}

	// 只有生产与预发布相同才算部分一致
	pro, proOK := present[config.EnvPro]
	pre, preOK := present[config.EnvPre]
	if proOK && preOK && pro == pre {
		return StatusPartially
	}

	return StatusInconsistent
}

func allEqual(values map[string]string) bool {
	first, started := "", false
	for _, v := range values {
		if !started {
			first, started = v, true
			continue
		}
		if v != first {
			return false
		}
	}
	return true
}

// classifyAll 对所有记录做一次一致性判定
func classifyAll(records map[CompositeKey]*Record, active EnvSet) {
	for _, rec := range records {
		rec.Consistency = Classify(rec.PresentValues(), active)
	}
}
