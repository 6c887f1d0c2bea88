package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"schema-graph/internal/graph"
	"schema-graph/internal/pipeline"
	"schema-graph/internal/renderer"
)

var (
	cfgFile string

	// build
	dbPath      string
	outPath     string
	busyTimeout time.Duration
	renderMD    bool
	renderER    bool

	// batch
	batchRoot    string
	batchOut     string
	batchDataset string
	batchWorkers int
	skipExisting bool
	batchLog     string

	// describe
	describeLevel string
	describeTable string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schema-graph",
		Short: "SQLite Schema Graph 构建器",
		Long:  "把 SQLite 数据库转换成带数据统计的属性图产物，供 Text-to-SQL 与图分析工具使用",
	}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "构建单个数据库的 Schema Graph",
		Run:   runBuild,
	}
	buildCmd.Flags().StringVar(&dbPath, "db", "", "SQLite 数据库文件路径")
	buildCmd.Flags().StringVar(&outPath, "out", "", "产物输出路径 (.json)")
	buildCmd.Flags().DurationVar(&busyTimeout, "busy-timeout", 5*time.Second, "SQLite busy timeout")
	buildCmd.Flags().BoolVar(&renderMD, "render-md", false, "同时输出 Markdown 数据字典")
	buildCmd.Flags().BoolVar(&renderER, "render-er", false, "同时输出 Mermaid ER 图")
	buildCmd.MarkFlagRequired("db")
	buildCmd.MarkFlagRequired("out")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "批量构建数据集下的所有数据库",
		Run:   runBatch,
	}
	batchCmd.Flags().StringVar(&batchRoot, "root", "", "数据集根目录 (root/<db>/<db>.sqlite)")
	batchCmd.Flags().StringVar(&batchOut, "out", "./output", "输出根目录")
	batchCmd.Flags().StringVar(&batchDataset, "dataset", "bird", "数据集名，决定输出层级")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "并行 worker 数 (0 取 CPU 核数)")
	batchCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "产物已存在时跳过（断点续传）")
	batchCmd.Flags().StringVar(&batchLog, "log", "schema_graph_batch.log", "批量运行日志文件")
	batchCmd.MarkFlagRequired("root")
	viper.BindPFlag("batch.out", batchCmd.Flags().Lookup("out"))
	viper.BindPFlag("batch.workers", batchCmd.Flags().Lookup("workers"))

	describeCmd := &cobra.Command{
		Use:   "describe <artifact.json>",
		Short: "把产物渲染成结构化文本描述",
		Args:  cobra.ExactArgs(1),
		Run:   runDescribe,
	}
	describeCmd.Flags().StringVar(&describeLevel, "level", "full", "详略级别 (full/brief/minimal)")
	describeCmd.Flags().StringVar(&describeTable, "table", "", "只输出指定表")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件 (默认 ./schema-graph.yaml)")
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(buildCmd, batchCmd, describeCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// initConfig 配置优先级：命令行 > 配置文件 > 默认值
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("schema-graph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err == nil {
		fmt.Printf("✓ 已加载配置文件: %s\n", viper.ConfigFileUsed())
	}
}

func runBuild(cmd *cobra.Command, args []string) {
	fmt.Println("🔨 开始构建 Schema Graph...")

	summary, err := pipeline.New(pipeline.Options{
		DBPath:      dbPath,
		OutputPath:  outPath,
		BusyTimeout: busyTimeout,
	}).Run()
	if err != nil {
		log.Fatalf("构建失败: %v", err)
	}

	fmt.Printf("✓ 表: %d  列: %d  外键: %d\n", summary.Tables, summary.Columns, summary.ForeignKeys)
	if len(summary.ProfilerWarnings) > 0 {
		fmt.Printf("⚠️  %d 列统计降级\n", len(summary.ProfilerWarnings))
	}
	if summary.MetadataMissing > 0 {
		fmt.Printf("ℹ️  %d 列没有人工描述\n", summary.MetadataMissing)
	}
	fmt.Printf("✓ %s\n", outPath)

	if renderMD || renderER {
		g, err := graph.LoadArtifact(outPath)
		if err != nil {
			log.Fatalf("读取产物失败: %v", err)
		}
		base := strings.TrimSuffix(outPath, filepath.Ext(outPath))
		if renderMD {
			mdPath := base + ".dict.md"
			if err := os.WriteFile(mdPath, []byte(renderer.NewMarkdownRenderer().Render(g)), 0644); err != nil {
				log.Fatalf("写数据字典失败: %v", err)
			}
			fmt.Printf("✓ %s\n", mdPath)
		}
		if renderER {
			erPath := base + ".er.mmd"
			if err := os.WriteFile(erPath, []byte(renderer.NewMermaidRenderer().Render(g)), 0644); err != nil {
				log.Fatalf("写 ER 图失败: %v", err)
			}
			fmt.Printf("✓ %s\n", erPath)
		}
	}

	fmt.Println("\n✅ 构建完成！")
}

func runBatch(cmd *cobra.Command, args []string) {
	outRoot := viper.GetString("batch.out")
	workers := viper.GetInt("batch.workers")

	fmt.Printf("🚀 开始批量构建: [%s]\n", batchDataset)
	fmt.Printf("📂 数据集目录: %s\n", batchRoot)
	fmt.Printf("📂 输出根目录: %s\n", outRoot)
	if skipExisting {
		fmt.Println("⏩ 已开启断点续传模式：检测到目标文件存在将自动跳过")
	}

	logger := batchLogger(batchLog)
	defer logger.Sync()

	result, err := pipeline.RunBatch(pipeline.BatchOptions{
		Root:         batchRoot,
		OutputRoot:   outRoot,
		Dataset:      batchDataset,
		Workers:      workers,
		SkipExisting: skipExisting,
		ShowProgress: true,
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("批量构建失败: %v", err)
	}

	fmt.Printf("\n✅ [%s] 处理完成 Summary:\n", batchDataset)
	fmt.Printf("   - 成功: %d\n", result.Succeeded)
	fmt.Printf("   - 失败: %d\n", result.Failed)
	fmt.Printf("   - 跳过: %d\n", result.Skipped)
	fmt.Printf("   - 日志已保存至 %s\n", batchLog)

	if result.Failed > 0 {
		os.Exit(1)
	}
}

func runDescribe(cmd *cobra.Command, args []string) {
	g, err := graph.LoadArtifact(args[0])
	if err != nil {
		log.Fatalf("读取产物失败: %v", err)
	}

	gen := renderer.NewSchemaTextGenerator(g)
	level := renderer.DetailLevel(describeLevel)

	tables := gen.TableNames()
	if describeTable != "" {
		tables = []string{describeTable}
	}
	for _, table := range tables {
		fmt.Println(gen.GenerateCombinedDescription(table, level, nil))
		fmt.Println()
	}
}

// batchLogger 批量运行写结构化日志文件
func batchLogger(path string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
