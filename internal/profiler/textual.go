package profiler

import (
	"sort"
	"strings"
)

// textualBlock 文本族统计：categories、avg_length、word_frequency
func (p *Profiler) textualBlock(values []interface{}) (*TextualStats, string) {
	var (
		texts    []string
		lenSum   int
		distinct = make(map[string]struct{})
	)

	for _, v := range values {
		if v == nil {
			continue
		}
		s := asString(v)
		texts = append(texts, s)
		lenSum += strlen(s)
		distinct[s] = struct{}{}
	}

	if len(texts) == 0 {
		return nil, "无非空值"
	}

	stats := &TextualStats{
		AvgLength: round1(float64(lenSum) / float64(len(texts))),
	}

	// 去重值不超过阈值时给出全量列表，固定升序
	if len(distinct) <= p.cfg.CategoryLimit {
		categories := make([]string, 0, len(distinct))
		for s := range distinct {
			categories = append(categories, s)
		}
		sort.Strings(categories)
		stats.Categories = categories
	}

	stats.WordFrequency = p.wordFrequency(texts)

	return stats, ""
}

// wordFrequency 按空白切词后的 Top-K 词频
// 频次为 1 的长尾词最多保留 3 个，且长度不超过 20；高频词不受限。
func (p *Profiler) wordFrequency(texts []string) []WordCount {
	const (
		singletonKeep   = 3
		singletonMaxLen = 20
	)

	freq := make(map[string]int)
	for _, s := range texts {
		for _, token := range strings.Fields(s) {
			freq[token]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(freq))
	for token := range freq {
		tokens = append(tokens, token)
	}
	// 频次降序，同频按字典序，保证跨运行稳定
	sort.Slice(tokens, func(i, j int) bool {
		if freq[tokens[i]] != freq[tokens[j]] {
			return freq[tokens[i]] > freq[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})

	var (
		result     []WordCount
		singletons int
	)
	for _, token := range tokens {
		if len(result) >= p.cfg.WordTopK {
			break
		}
		if freq[token] == 1 {
			if singletons >= singletonKeep || strlen(token) > singletonMaxLen {
				continue
			}
			singletons++
		}
		result = append(result, WordCount{Token: token, Count: freq[token]})
	}
	return result
}
