// Package gwcresttest はテストとローカル開発用のインプロセスなタイルキャッシュ管理REST サーバーを提供する。
package gwcresttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/jinford/gwc-jobctl/internal/core/job"
)

// BasePath はRESTエンドポイントのパスプレフィックス
const BasePath = "/geowebcache/rest"

// Request は受信したリクエストの記録
type Request struct {
	Method    string
	Path      string
	RequestID string
}

type failure struct {
	status int
	body   string
}

// Server はジョブ・ジョブログ・タスク・設定をメモリ上に保持する偽サーバー。
// 作成されたジョブにはIDを採番し、初期状態を READY にする。
type Server struct {
	mu       sync.Mutex
	jobs     []*job.Job
	logs     []*job.JobLog
	tasks    []*job.Task
	settings job.Settings
	nextID   int64
	nextLog  int64
	failures []failure
	requests []Request

	router *mux.Router
	ts     *httptest.Server
}

// New はリスナーを持たない Server を作成する。http.Handler として利用できる
func New() *Server {
	s := &Server{
		nextID:   1,
		nextLog:  1,
		settings: job.Settings{ClearOldJobs: job.RetentionNever},
	}

	router := mux.NewRouter()
	router.Use(s.intercept)

	api := router.PathPrefix(BasePath).Subrouter()
	api.HandleFunc("/jobs.json", s.listJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs.json", s.createJob).Methods(http.MethodPut)
	api.HandleFunc("/jobs/{id:-?[0-9]+}.json", s.updateJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{id:-?[0-9]+}.json", s.deleteJob).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id:-?[0-9]+}/logs.json", s.listLogs).Methods(http.MethodGet)
	api.HandleFunc("/tasks.json", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/settings.json", s.getSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings.json", s.setSettings).Methods(http.MethodPost)

	s.router = router
	return s
}

// NewServer は httptest.Server 上で起動した Server を作成する
func NewServer() *Server {
	s := New()
	s.ts = httptest.NewServer(s)
	return s
}

// ServeHTTP は http.Handler の実装
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// BaseURL はクライアントに渡すベースURLを返す
func (s *Server) BaseURL() string {
	if s.ts == nil {
		return BasePath
	}
	return s.ts.URL + BasePath
}

// Close はサーバーを停止する
func (s *Server) Close() {
	if s.ts != nil {
		s.ts.Close()
	}
}

// SeedJobs はジョブを投入する。jobId が -1 のものには採番する
func (s *Server) SeedJobs(jobs ...*job.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		c := j.Copy()
		if c.IsNew() {
			c.JobID = s.nextID
		}
		if c.JobID >= s.nextID {
			s.nextID = c.JobID + 1
		}
		s.jobs = append(s.jobs, c)
	}
}

// SeedLogs はジョブログを投入する
func (s *Server) SeedLogs(logs ...*job.JobLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range logs {
		c := *l
		if c.JobLogID == 0 {
			c.JobLogID = s.nextLog
			s.nextLog++
		}
		s.logs = append(s.logs, &c)
	}
}

// SeedTasks はタスクを投入する
func (s *Server) SeedTasks(tasks ...*job.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		c := *t
		s.tasks = append(s.tasks, &c)
	}
}

// SetJobState はサーバー側でジョブの状態を遷移させる
func (s *Server) SetJobState(jobID int64, state job.State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.findJob(jobID); j != nil {
		j.State = state
		return true
	}
	return false
}

// Jobs はサーバー上のジョブのコピーを返す
func (s *Server) Jobs() []*job.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j.Copy())
	}
	return result
}

// Settings はサーバー上の設定を返す
func (s *Server) Settings() job.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// FailNext は次のリクエストを指定したステータスとボディで失敗させる
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, body: body})
}

// Requests は受信したリクエストの記録を返す
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-ID"),
		})
		var fail *failure
		if len(s.failures) > 0 {
			fail = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if fail != nil {
			http.Error(w, fail.body, fail.status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	jobs := make([]*job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j.Copy())
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Job *job.Job `json:"job"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Job == nil {
		http.Error(w, "invalid job payload", http.StatusBadRequest)
		return
	}
	if !req.Job.IsNew() {
		http.Error(w, fmt.Sprintf("jobId must be -1 for creation, got %d", req.Job.JobID), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	created := req.Job.Copy()
	created.JobID = s.nextID
	s.nextID++
	created.State = job.StateReady
	s.jobs = append(s.jobs, created)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"job": created})
}

func (s *Server) updateJob(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	var req struct {
		Job *job.Job `json:"job"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Job == nil {
		http.Error(w, "invalid job payload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.findJob(id)
	if current == nil {
		http.Error(w, fmt.Sprintf("job %d not found", id), http.StatusNotFound)
		return
	}

	// 状態はサーバーが決める。クライアントから受け付けるのは停止要求のみ
	if req.Job.State == job.StateKilled && current.State == job.StateRunning {
		current.State = job.StateKilled
	}
	current.Priority = req.Job.Priority
	current.MaxThroughput = req.Job.MaxThroughput
	current.Schedule = req.Job.Schedule
	current.RunOnce = req.Job.RunOnce

	writeJSON(w, http.StatusOK, map[string]any{"job": current})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.jobs, func(j *job.Job) bool { return j.JobID == id })
	if idx < 0 {
		http.Error(w, fmt.Sprintf("job %d not found", id), http.StatusNotFound)
		return
	}
	s.jobs = slices.Delete(s.jobs, idx, idx+1)
	s.logs = slices.DeleteFunc(s.logs, func(l *job.JobLog) bool { return l.JobID == id })
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	logs := make([]*job.JobLog, 0)
	for _, l := range s.logs {
		if l.JobID == id {
			c := *l
			logs = append(logs, &c)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tasks := slices.Clone(s.tasks)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (s *Server) setSettings(w http.ResponseWriter, r *http.Request) {
	var req job.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	if req.ClearOldJobs < 0 {
		http.Error(w, "clearOldJobs must not be negative", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.settings = req
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"settings": req})
}

func (s *Server) findJob(id int64) *job.Job {
	for _, j := range s.jobs {
		if j.JobID == id {
			return j
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
