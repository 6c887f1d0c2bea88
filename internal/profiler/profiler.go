package profiler

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Config 分析参数，整条流水线共享一份不可变配置
type Config struct {
	HardCap       int // 单表采样行数上限
	SampleLimit   int // samples 条数上限
	TruncateLen   int // 文本样例截断长度
	CategoryLimit int // categories 去重值上限
	WordTopK      int // word_frequency 保留词数
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		HardCap:       100000,
		SampleLimit:   6,
		TruncateLen:   30,
		CategoryLimit: 6,
		WordTopK:      10,
	}
}

// Ellipsis 截断标记
const Ellipsis = "..."

// Input 单列的分析输入
type Input struct {
	TableName    string
	ColumnName   string
	DeclaredType string
	IsPrimaryKey bool
	Values       []interface{} // 有界样本，可能包含 NULL
}

// Stats 分析结果：公共块 + 按类型族的专有块
// 专有块最多一个非空，写入图节点时拍平成属性字典。
type Stats struct {
	Family   Family
	Common   Common
	Numeric  *NumericStats
	Textual  *TextualStats
	Temporal *TemporalStats
	Warning  string // 专有块计算失败的原因，空串表示正常
}

// Common 所有类型族共有的统计块
type Common struct {
	Samples       []interface{}
	NullCount     int
	DataIntegrity string // "{p}%"
}

// NumericStats 数值族统计
type NumericStats struct {
	Min      float64
	Max      float64
	Mean     float64
	Mode     interface{} // 满足条件时才有值
	Integral bool        // 整数族时 range 以整数输出
}

// TextualStats 文本族统计
type TextualStats struct {
	Categories    []string // 去重值不超过阈值时的全量有序列表
	AvgLength     float64
	WordFrequency []WordCount
}

// WordCount 词频条目
type WordCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// TemporalStats 时间族统计
type TemporalStats struct {
	Earliest string
	Latest   string
	Span     string // "{days}d" 或 "{hours}h"
}

// Profiler 列数据分析器
type Profiler struct {
	cfg Config
}

// New 创建分析器
func New(cfg Config) *Profiler {
	return &Profiler{cfg: cfg}
}

// Profile 分析一列的有界样本
// 输入相同则输出相同；专有块算不出来时降级为仅公共块并记录原因。
func (p *Profiler) Profile(in Input) *Stats {
	stats := &Stats{Family: InferFamily(in.DeclaredType)}
	stats.Common = p.commonBlock(in.Values)

	switch stats.Family {
	case FamilyInteger, FamilyReal, FamilyBoolean:
		stats.Numeric, stats.Warning = p.numericBlock(in, stats.Family)
	case FamilyTextual:
		stats.Textual, stats.Warning = p.textualBlock(in.Values)
	case FamilyTemporal:
		stats.Temporal, stats.Warning = p.temporalBlock(in.Values)
	}

	return stats
}

// commonBlock 公共统计块
func (p *Profiler) commonBlock(values []interface{}) Common {
	c := Common{}

	for _, v := range values {
		if v == nil {
			c.NullCount++
			continue
		}
		if len(c.Samples) < p.cfg.SampleLimit {
			c.Samples = append(c.Samples, p.sampleValue(v))
		}
	}

	total := len(values)
	if total == 0 {
		c.DataIntegrity = "0%"
	} else {
		nonNull := total - c.NullCount
		pct := int(math.Round(100 * float64(nonNull) / float64(total)))
		c.DataIntegrity = fmt.Sprintf("%d%%", pct)
	}
	return c
}

// sampleValue 样例值，过长的文本截断并加省略标记
func (p *Profiler) sampleValue(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if utf8.RuneCountInString(s) <= p.cfg.TruncateLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:p.cfg.TruncateLen]) + Ellipsis
}

// Flatten 拍平为节点属性字典
// 序列化产物以单层属性名为键，读方按 type 族取用。
func (s *Stats) Flatten() map[string]interface{} {
	samples := s.Common.Samples
	if samples == nil {
		samples = []interface{}{}
	}
	attrs := map[string]interface{}{
		"samples":        samples,
		"null_count":     s.Common.NullCount,
		"data_integrity": s.Common.DataIntegrity,
	}

	switch {
	case s.Numeric != nil:
		if s.Numeric.Integral {
			attrs["range"] = []interface{}{int64(s.Numeric.Min), int64(s.Numeric.Max)}
		} else {
			attrs["range"] = []interface{}{s.Numeric.Min, s.Numeric.Max}
		}
		attrs["mean"] = s.Numeric.Mean
		if s.Numeric.Mode != nil {
			attrs["mode"] = s.Numeric.Mode
		}
	case s.Textual != nil:
		if s.Textual.Categories != nil {
			attrs["categories"] = s.Textual.Categories
		}
		attrs["avg_length"] = s.Textual.AvgLength
		if len(s.Textual.WordFrequency) > 0 {
			attrs["word_frequency"] = s.Textual.WordFrequency
		}
	case s.Temporal != nil:
		attrs["earliest_time"] = s.Temporal.Earliest
		attrs["latest_time"] = s.Temporal.Latest
		attrs["time_span"] = s.Temporal.Span
	}

	if s.Warning != "" {
		attrs["profiler_warning"] = s.Warning
	}
	return attrs
}

// strlen 字符长度（按 rune 计）
func strlen(s string) int {
	return utf8.RuneCountInString(s)
}

// round1 保留一位小数
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// isIdentifierColumn 标识列不输出 mode：主键，或列名以 id 结尾
func isIdentifierColumn(name string, isPrimaryKey bool) bool {
	return isPrimaryKey || strings.HasSuffix(strings.ToLower(name), "id")
}
