package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"schema-graph/internal/adapter"
	"schema-graph/internal/graph"
	"schema-graph/internal/metadata"
	"schema-graph/internal/profiler"
)

// ErrUnresolvableFK 外键省略了目标列且目标表没有主键
var ErrUnresolvableFK = errors.New("unresolvable foreign key")

// Options 单库流水线配置，运行期间不可变
type Options struct {
	DBPath      string
	OutputPath  string
	BusyTimeout time.Duration
	Profiler    profiler.Config
	Logger      *zap.Logger

	// OnProgress 阶段进度回调，供服务端推送用，可为空
	OnProgress func(phase string, done, total int)
}

// Summary 单次运行的汇总，随产物一起写出
// 非致命错误（分析降级、描述缺失）都累计在这里。
type Summary struct {
	Database         string   `json:"database"`
	Tables           int      `json:"tables"`
	Columns          int      `json:"columns"`
	ForeignKeys      int      `json:"foreign_keys"`
	ProfilerWarnings []string `json:"profiler_warnings"`
	MetadataWarnings []string `json:"metadata_warnings"`
	MetadataMissing  int      `json:"metadata_missing"`
	Elapsed          string   `json:"elapsed"`
}

// Pipeline 单库流水线：DAL -> (ML, DP) -> GB -> 序列化
// 单线程执行，一条连接一张图，库与库之间才做并行。
type Pipeline struct {
	opts Options
	log  *zap.Logger
}

// New 创建流水线
func New(opts Options) *Pipeline {
	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.Profiler == (profiler.Config{}) {
		opts.Profiler = profiler.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{opts: opts, log: log}
}

// Run 执行四个阶段，成功后原子写出产物，再在旁边写出汇总（汇总不走临时文件）
// DAL 错误和无法解析的外键是致命的；产物写出前的失败不留下任何产物。
func (p *Pipeline) Run() (*Summary, error) {
	start := time.Now()
	dbName := strings.TrimSuffix(filepath.Base(p.opts.DBPath), filepath.Ext(p.opts.DBPath))
	summary := &Summary{Database: dbName}

	log := p.log.With(zap.String("database", dbName))
	log.Info("pipeline started", zap.String("db_path", p.opts.DBPath))

	descriptions := metadata.Load(filepath.Dir(p.opts.DBPath))
	summary.MetadataWarnings = descriptions.Warnings()
	for _, w := range descriptions.Warnings() {
		log.Warn("metadata file skipped", zap.String("reason", w))
	}

	dal, err := adapter.NewSQLiteAdapter(p.opts.DBPath, p.opts.BusyTimeout)
	if err != nil {
		return nil, err
	}
	defer dal.Close()

	tables, err := dal.ListTables()
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder()
	schemas := make(map[string]*adapter.TableSchema, len(tables))

	// 阶段一：表节点
	for i, table := range tables {
		schema, err := dal.DescribeTable(table)
		if err != nil {
			return nil, err
		}
		rowCount, err := dal.RowCount(table)
		if err != nil {
			return nil, err
		}
		schemas[table] = schema

		columns := make([]string, 0, len(schema.Columns))
		for _, col := range schema.Columns {
			columns = append(columns, col.Name)
		}
		if err := builder.AddTable(table, rowCount, columns, schema.PrimaryKey); err != nil {
			return nil, err
		}
		p.progress("tables", i+1, len(tables))
	}
	summary.Tables = len(tables)
	log.Info("tables registered", zap.Int("count", len(tables)))

	// 阶段二：列节点与数据分析
	prof := profiler.New(p.opts.Profiler)
	for i, table := range tables {
		schema := schemas[table]
		for _, col := range schema.Columns {
			values, err := dal.SampleValues(table, col.Name, p.opts.Profiler.HardCap)
			if err != nil {
				return nil, err
			}

			stats := p.profileColumn(prof, profiler.Input{
				TableName:    table,
				ColumnName:   col.Name,
				DeclaredType: col.DeclaredType,
				IsPrimaryKey: col.PKOrdinal > 0,
				Values:       values,
			})
			if stats.Warning != "" {
				summary.ProfilerWarnings = append(summary.ProfilerWarnings,
					fmt.Sprintf("%s.%s: %s", table, col.Name, stats.Warning))
				log.Warn("profiler degraded",
					zap.String("column", graph.ColumnID(table, col.Name)),
					zap.String("reason", stats.Warning))
			}

			attrs := graph.ColumnAttrs{
				Name:         col.Name,
				DataType:     col.DeclaredType,
				IsPrimaryKey: col.PKOrdinal > 0,
				IsNullable:   col.Nullable(),
				Stats:        stats.Flatten(),
			}
			if d, ok := descriptions.Lookup(table, col.Name); ok {
				attrs.ColumnDescription = d.ColumnDescription
				attrs.ValueDescription = d.ValueDescription
			} else {
				summary.MetadataMissing++
			}

			if err := builder.AddColumn(table, attrs); err != nil {
				return nil, err
			}
			summary.Columns++
		}
		p.progress("columns", i+1, len(tables))
	}
	log.Info("columns profiled", zap.Int("count", summary.Columns))

	// 阶段三：外键边
	for i, table := range tables {
		for _, fk := range schemas[table].ForeignKeys {
			toColumn, err := p.resolveFKTarget(table, fk, schemas)
			if err != nil {
				return nil, err
			}
			if err := builder.AddForeignKey(table, fk.FromColumn, fk.ToTable, toColumn); err != nil {
				return nil, fmt.Errorf("foreign key %s.%s -> %s.%s: %w",
					table, fk.FromColumn, fk.ToTable, toColumn, err)
			}
		}
		p.progress("foreign_keys", i+1, len(tables))
	}
	summary.ForeignKeys = len(builder.Graph().ForeignKeyEdges())

	// 阶段四：回填并写出
	if err := builder.Finalize(); err != nil {
		return nil, err
	}
	g := builder.Graph()
	if err := graph.WriteArtifact(g, p.opts.OutputPath); err != nil {
		return nil, err
	}
	summary.Elapsed = time.Since(start).Round(time.Millisecond).String()
	if err := writeSummary(summary, p.opts.OutputPath); err != nil {
		return nil, err
	}

	log.Info("pipeline finished",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("foreign_keys", summary.ForeignKeys),
		zap.Int("metadata_missing", summary.MetadataMissing),
		zap.String("elapsed", summary.Elapsed),
		zap.String("output", p.opts.OutputPath))
	return summary, nil
}

// resolveFKTarget 补全省略的外键目标列
// SQLite 允许只写目标表，隐含指向其主键；复合约束按列序号对位。
func (p *Pipeline) resolveFKTarget(table string, fk adapter.ForeignKey, schemas map[string]*adapter.TableSchema) (string, error) {
	if fk.ToColumn != "" {
		return fk.ToColumn, nil
	}
	target, ok := schemas[fk.ToTable]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s 引用了不存在的表 %s",
			ErrUnresolvableFK, table, fk.FromColumn, fk.ToTable)
	}
	if fk.Seq >= len(target.PrimaryKey) {
		return "", fmt.Errorf("%w: %s.%s -> %s 省略目标列且目标表无主键",
			ErrUnresolvableFK, table, fk.FromColumn, fk.ToTable)
	}
	return target.PrimaryKey[fk.Seq], nil
}

// profileColumn 运行分析器
// 单列的分析崩溃不终止整库构建，降级为仅公共块。
func (p *Pipeline) profileColumn(prof *profiler.Profiler, in profiler.Input) (stats *profiler.Stats) {
	defer func() {
		if r := recover(); r != nil {
			fallback := in
			fallback.DeclaredType = "" // 只算公共块
			stats = prof.Profile(fallback)
			stats.Warning = fmt.Sprintf("profiler panic: %v", r)
		}
	}()
	return prof.Profile(in)
}

func (p *Pipeline) progress(phase string, done, total int) {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(phase, done, total)
	}
}

// writeSummary 汇总写在产物旁边
func writeSummary(s *Summary, artifactPath string) error {
	path := strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath)) + ".summary.json"
	return writeJSON(path, s)
}
