package profiler

import (
	"fmt"
	"time"
)

// timeLayouts 按常见程度排列的解析格式
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"15:04:05",
}

// temporalBlock 时间族统计：time_span 及最早/最晚时间
// 解析失败的值只在本统计中按 NULL 对待，不影响公共块。
func (p *Profiler) temporalBlock(values []interface{}) (*TemporalStats, string) {
	var (
		earliest time.Time
		latest   time.Time
		parsed   int
		nonNull  int
	)

	for _, v := range values {
		if v == nil {
			continue
		}
		nonNull++
		t, ok := parseTime(asString(v))
		if !ok {
			continue
		}
		if parsed == 0 || t.Before(earliest) {
			earliest = t
		}
		if parsed == 0 || t.After(latest) {
			latest = t
		}
		parsed++
	}

	if parsed == 0 {
		if nonNull > 0 {
			return nil, "无法解析为时间"
		}
		return nil, "无非空值"
	}

	return &TemporalStats{
		Earliest: earliest.Format("2006-01-02 15:04:05"),
		Latest:   latest.Format("2006-01-02 15:04:05"),
		Span:     formatSpan(latest.Sub(earliest)),
	}, ""
}

// parseTime 逐一尝试已知格式
func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatSpan 粗粒度时长：满一天按天，否则按小时
func formatSpan(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days >= 1 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}
