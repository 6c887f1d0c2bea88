package metadata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// DirName 描述目录名，与数据库文件同级
const DirName = "database_description"

// Description 一列的人工描述
type Description struct {
	ColumnDescription string
	ValueDescription  string
}

// Store 描述查找表，键为 (表名, 列名)
// 描述文件是可选的：目录或文件缺失都返回空映射，不算错误。
type Store struct {
	tables   map[string]map[string]Description // 小写表名 -> 小写列名 -> 描述
	warnings []string
}

// Load 读取数据库的描述目录
// dbDir 是数据库文件所在目录；解析失败的文件记入警告并跳过。
func Load(dbDir string) *Store {
	s := &Store{tables: make(map[string]map[string]Description)}

	dir := filepath.Join(dbDir, DirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		// 目录不存在是常态（Spider 数据集没有描述文件）
		return s
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		table := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		columns, err := parseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			s.warnings = append(s.warnings, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		s.tables[strings.ToLower(table)] = columns
	}
	return s
}

// parseFile 解析单个描述文件
func parseFile(path string) (map[string]Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // 描述文件的行经常缺列
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %v", err)
	}

	keyIdx, descIdx, valueIdx := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "original_column_name":
			keyIdx = i
		case "column_description":
			descIdx = i
		case "value_description":
			valueIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("缺少 original_column_name 列")
	}

	columns := make(map[string]Description)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 个别坏行不拖垮整个文件
			continue
		}
		if keyIdx >= len(record) {
			continue
		}
		column := strings.TrimSpace(record[keyIdx])
		if column == "" {
			continue
		}
		d := Description{}
		if descIdx >= 0 && descIdx < len(record) {
			d.ColumnDescription = strings.TrimSpace(record[descIdx])
		}
		if valueIdx >= 0 && valueIdx < len(record) {
			d.ValueDescription = strings.TrimSpace(record[valueIdx])
		}
		columns[strings.ToLower(column)] = d
	}
	return columns, nil
}

// Lookup 查找某列的描述
// 先精确匹配（大小写不敏感），找不到再做编辑距离容错：
// 描述表里的列名拼写经常和目录里差一两个字符。
func (s *Store) Lookup(table, column string) (Description, bool) {
	columns, ok := s.tables[strings.ToLower(table)]
	if !ok {
		return Description{}, false
	}

	key := strings.ToLower(column)
	if d, ok := columns[key]; ok {
		return d, true
	}

	const maxDistance = 2
	bestKey, bestDistance := "", maxDistance+1
	for candidate := range columns {
		d := levenshtein.DistanceForStrings([]rune(key), []rune(candidate), levenshtein.DefaultOptions)
		if d < bestDistance || (d == bestDistance && candidate < bestKey) {
			bestKey, bestDistance = candidate, d
		}
	}
	if bestDistance <= maxDistance {
		return columns[bestKey], true
	}
	return Description{}, false
}

// Empty 是否没有任何描述
func (s *Store) Empty() bool {
	return len(s.tables) == 0
}

// Warnings 解析过程中跳过的文件
func (s *Store) Warnings() []string {
	return s.warnings
}
