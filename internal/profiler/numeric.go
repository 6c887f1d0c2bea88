package profiler

import "math"

// numericBlock 数值族统计：range、mean、条件性的 mode
func (p *Profiler) numericBlock(in Input, family Family) (*NumericStats, string) {
	var (
		sum      float64
		count    int
		min      = math.Inf(1)
		max      = math.Inf(-1)
		integral = true
		nonNull  int
	)

	// mode 候选按原始值的字符串形式计数，同频时首次出现较早者胜出
	freq := make(map[string]int)
	firstSeen := make(map[string]int)
	modeValue := make(map[string]interface{})
	order := 0

	for _, v := range in.Values {
		if v == nil {
			continue
		}
		nonNull++
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		count++
		sum += f
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
		if f != math.Trunc(f) {
			integral = false
		}

		key := asString(v)
		if _, seen := freq[key]; !seen {
			firstSeen[key] = order
			modeValue[key] = v
			order++
		}
		freq[key]++
	}

	if count == 0 {
		if nonNull > 0 {
			return nil, "无法解析为数值"
		}
		return nil, "无非空值"
	}

	stats := &NumericStats{
		Min:      min,
		Max:      max,
		Mean:     sum / float64(count),
		Integral: integral && (family == FamilyInteger || family == FamilyBoolean),
	}

	// mode 仅在最高频次大于 1 且该列不是标识列时输出
	if !isIdentifierColumn(in.ColumnName, in.IsPrimaryKey) {
		best, bestCount, bestOrder := "", 0, 0
		for key, n := range freq {
			if n > bestCount || (n == bestCount && firstSeen[key] < bestOrder) {
				best, bestCount, bestOrder = key, n, firstSeen[key]
			}
		}
		if bestCount > 1 {
			stats.Mode = modeValue[best]
		}
	}

	return stats, ""
}
