package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosuri/uiprogress"
	"go.uber.org/zap"

	"schema-graph/internal/profiler"
)

// BatchOptions 批量构建配置
// 数据集目录布局：Root/<db_name>/<db_name>.sqlite
type BatchOptions struct {
	Root         string // 数据集根目录
	OutputRoot   string // 输出根目录
	Dataset      string // 数据集名，用于输出层级
	Workers      int    // 0 取 CPU 核数
	SkipExisting bool   // 目标产物已存在时跳过（断点续传）
	ShowProgress bool   // 终端进度条
	BusyTimeout  time.Duration
	Profiler     profiler.Config
	Logger       *zap.Logger
}

// BatchResult 批量运行汇总
type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// batchJob 一个数据库的构建任务
type batchJob struct {
	dbName  string
	dbPath  string
	outPath string
}

// RunBatch 并行构建数据集下的所有数据库
// 库间并行、库内单线程：每个 worker 拥有独立的流水线和输出路径，
// 单库失败不影响其他库。
func RunBatch(opts BatchOptions) (*BatchResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs, skipped, err := scanJobs(opts)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Skipped: skipped, Failures: make(map[string]string)}

	var bar *uiprogress.Bar
	progress := uiprogress.New()
	if opts.ShowProgress && len(jobs) > 0 {
		progress.Start()
		bar = progress.AddBar(len(jobs)).AppendCompleted().PrependElapsed()
		defer progress.Stop()
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		jobChan = make(chan batchJob)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				err := runOne(job, opts, log)

				mu.Lock()
				if err != nil {
					result.Failed++
					result.Failures[job.dbName] = err.Error()
					log.Error("database failed", zap.String("database", job.dbName), zap.Error(err))
				} else {
					result.Succeeded++
					log.Info("database done", zap.String("database", job.dbName), zap.String("output", job.outPath))
				}
				mu.Unlock()

				if bar != nil {
					bar.Incr()
				}
			}
		}()
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	wg.Wait()

	return result, nil
}

// runOne 跑一个库，panic 也按失败计
func runOne(job batchJob, opts BatchOptions, log *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	_, err = New(Options{
		DBPath:      job.dbPath,
		OutputPath:  job.outPath,
		BusyTimeout: opts.BusyTimeout,
		Profiler:    opts.Profiler,
		Logger:      log,
	}).Run()
	return err
}

// scanJobs 扫描数据集目录，收集待构建的数据库
func scanJobs(opts BatchOptions) ([]batchJob, int, error) {
	entries, err := os.ReadDir(opts.Root)
	if err != nil {
		return nil, 0, fmt.Errorf("扫描数据集目录失败: %v", err)
	}

	var (
		jobs    []batchJob
		skipped int
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dbName := entry.Name()
		dbPath, ok := findSQLiteFile(filepath.Join(opts.Root, dbName))
		if !ok {
			continue
		}

		outPath := filepath.Join(opts.OutputRoot, opts.Dataset, dbName, dbName+".json")
		if opts.SkipExisting {
			if _, err := os.Stat(outPath); err == nil {
				skipped++
				continue
			}
		}
		jobs = append(jobs, batchJob{dbName: dbName, dbPath: dbPath, outPath: outPath})
	}
	return jobs, skipped, nil
}

// findSQLiteFile 目录下的第一个 .sqlite 或 .db 文件（字典序）
func findSQLiteFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".sqlite") || strings.HasSuffix(name, ".db") {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return filepath.Join(dir, candidates[0]), true
}

// writeJSON 落盘为带缩进的 JSON
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
