package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"schema-graph/internal/graph"
	"schema-graph/internal/pipeline"
	"schema-graph/internal/renderer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// BuildRequest 构建请求
type BuildRequest struct {
	DBPath     string `json:"db_path"`     // SQLite 文件路径
	OutputPath string `json:"output_path"` // 产物输出路径
}

// BuildTask 构建任务
type BuildTask struct {
	ID        string            `json:"id"`
	Request   BuildRequest      `json:"request"`
	Status    string            `json:"status"` // pending/running/completed/failed
	Phase     string            `json:"phase"`
	Progress  int               `json:"progress"` // 0-100
	Message   string            `json:"message"`
	Summary   *pipeline.Summary `json:"summary,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

var (
	tasks   = make(map[string]*BuildTask)
	tasksMu sync.RWMutex
	taskSeq int
)

func main() {
	addr := flag.String("addr", ":8080", "监听地址")
	flag.Parse()

	http.HandleFunc("/api/build", handleBuild)
	http.HandleFunc("/api/task/", handleTaskStatus)
	http.HandleFunc("/api/ws", handleWebSocket)
	http.HandleFunc("/api/graph", handleGraph)
	http.HandleFunc("/api/schema-text", handleSchemaText)

	fmt.Printf("🚀 Schema Graph 服务已启动: %s\n", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

// handleBuild 提交构建任务，后台异步执行
func handleBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DBPath == "" || req.OutputPath == "" {
		http.Error(w, "db_path and output_path are required", http.StatusBadRequest)
		return
	}

	task := newTask(req)
	go runTask(task)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"task_id": task.ID})
}

func newTask(req BuildRequest) *BuildTask {
	tasksMu.Lock()
	defer tasksMu.Unlock()
	taskSeq++
	task := &BuildTask{
		ID:        fmt.Sprintf("task-%d-%d", time.Now().Unix(), taskSeq),
		Request:   req,
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	tasks[task.ID] = task
	return task
}

// runTask 执行构建并更新任务状态
func runTask(task *BuildTask) {
	updateTask(task.ID, func(t *BuildTask) {
		t.Status = "running"
		t.Message = "构建中"
	})

	summary, err := pipeline.New(pipeline.Options{
		DBPath:     task.Request.DBPath,
		OutputPath: task.Request.OutputPath,
		OnProgress: func(phase string, done, total int) {
			pct := 0
			if total > 0 {
				pct = done * 100 / total
			}
			updateTask(task.ID, func(t *BuildTask) {
				t.Phase = phase
				t.Progress = pct
			})
		},
	}).Run()

	if err != nil {
		updateTask(task.ID, func(t *BuildTask) {
			t.Status = "failed"
			t.Message = err.Error()
		})
		return
	}
	updateTask(task.ID, func(t *BuildTask) {
		t.Status = "completed"
		t.Progress = 100
		t.Message = "构建完成"
		t.Summary = summary
	})
}

func updateTask(id string, fn func(*BuildTask)) {
	tasksMu.Lock()
	defer tasksMu.Unlock()
	if task, ok := tasks[id]; ok {
		fn(task)
		task.UpdatedAt = time.Now()
	}
}

func getTask(id string) *BuildTask {
	tasksMu.RLock()
	defer tasksMu.RUnlock()
	if task, ok := tasks[id]; ok {
		copied := *task
		return &copied
	}
	return nil
}

// handleTaskStatus 查询任务状态
func handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/task/")
	task := getTask(id)
	if task == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// handleWebSocket 推送任务状态直到结束
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("task_id")
	if getTask(id) == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		task := getTask(id)
		if task == nil {
			return
		}
		if err := conn.WriteJSON(task); err != nil {
			return
		}
		if task.Status == "completed" || task.Status == "failed" {
			return
		}
	}
}

// handleGraph 返回产物 JSON
func handleGraph(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	g, err := graph.LoadArtifact(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	data, err := g.Encode()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleSchemaText 返回表的结构化文本描述
func handleSchemaText(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	table := r.URL.Query().Get("table")
	level := r.URL.Query().Get("level")
	if level == "" {
		level = string(renderer.DetailFull)
	}
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	g, err := graph.LoadArtifact(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	gen := renderer.NewSchemaTextGenerator(g)

	tables := gen.TableNames()
	if table != "" {
		tables = []string{table}
	}
	var parts []string
	for _, t := range tables {
		parts = append(parts, gen.GenerateCombinedDescription(t, renderer.DetailLevel(level), nil))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, strings.Join(parts, "\n\n"))
}
