package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrUnknownDataset 不支持的数据集标签
var ErrUnknownDataset = errors.New("unknown dataset")

// 支持的数据集标签
const (
	TagSpider    = "spider"
	TagSpiderDev = "spider_dev"
	TagBird      = "bird"
	TagBirdDev   = "bird_dev"
)

// Paths 各数据集 JSON 文件的位置
type Paths struct {
	SpiderTrain       string `mapstructure:"spider_train"`
	SpiderTrainOthers string `mapstructure:"spider_train_others"`
	SpiderDev         string `mapstructure:"spider_dev"`
	BirdTrain         string `mapstructure:"bird_train"`
	BirdDev           string `mapstructure:"bird_dev"`
}

// Record 统一后的问答记录
// Spider 没有 evidence 字段，补成 null 以保证字段集一致。
type Record struct {
	Question string  `json:"question"`
	SQLQuery string  `json:"sql_query"`
	Evidence *string `json:"evidence"`
	DBID     string  `json:"db_id"`
}

// rawRecord 原始 JSON 记录
// Spider 的 SQL 在 query 字段，BIRD 在 SQL 字段。
type rawRecord struct {
	Question string  `json:"question"`
	Query    string  `json:"query"`
	SQL      string  `json:"SQL"`
	Evidence *string `json:"evidence"`
	DBID     string  `json:"db_id"`
}

// Loader 统一 Spider 和 BIRD 字段映射的数据加载器
type Loader struct {
	tag  string
	data []rawRecord
}

// NewLoader 按标签加载数据集
// spider 标签合并 train 与 train_others 两个文件。
func NewLoader(tag string, paths Paths) (*Loader, error) {
	var files []string
	switch tag {
	case TagSpider:
		files = []string{paths.SpiderTrain, paths.SpiderTrainOthers}
	case TagSpiderDev:
		files = []string{paths.SpiderDev}
	case TagBird:
		files = []string{paths.BirdTrain}
	case TagBirdDev:
		files = []string{paths.BirdDev}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, tag)
	}

	loader := &Loader{tag: tag}
	for _, file := range files {
		records, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		loader.data = append(loader.data, records...)
	}
	return loader, nil
}

func loadFile(path string) ([]rawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据集文件失败: %v", err)
	}
	var records []rawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %v", path, err)
	}
	return records, nil
}

// Records 归一化后的记录
// dbID 非空时只返回该数据库的记录。
func (l *Loader) Records(dbID string) []Record {
	var out []Record
	for _, raw := range l.data {
		if dbID != "" && raw.DBID != dbID {
			continue
		}
		out = append(out, normalize(raw))
	}
	return out
}

// normalize 字段映射与清洗
func normalize(raw rawRecord) Record {
	sqlQuery := raw.Query
	if sqlQuery == "" {
		sqlQuery = raw.SQL
	}
	// 去掉首尾空白和结尾分号
	sqlQuery = strings.TrimSpace(sqlQuery)
	sqlQuery = strings.TrimRight(sqlQuery, ";")
	sqlQuery = strings.TrimSpace(sqlQuery)

	return Record{
		Question: raw.Question,
		SQLQuery: sqlQuery,
		Evidence: raw.Evidence,
		DBID:     raw.DBID,
	}
}

// DBNames 数据集中全部数据库 ID，升序去重
func (l *Loader) DBNames() []string {
	seen := make(map[string]struct{})
	for _, raw := range l.data {
		if raw.DBID != "" {
			seen[raw.DBID] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 记录总数
func (l *Loader) Len() int {
	return len(l.data)
}
