package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnsetID はサーバーがまだIDを割り当てていないジョブを表す番兵値
const UnsetID int64 = -1

// State はジョブ/タスクの状態（サーバーが遷移を決定する）
type State string

const (
	StateUnset       State = "UNSET"
	StateReady       State = "READY"
	StateRunning     State = "RUNNING"
	StateDone        State = "DONE"
	StateInterrupted State = "INTERRUPTED"
	StateKilled      State = "KILLED"
	StateDead        State = "DEAD"
)

// States は既知の全状態を定義順で返す
func States() []State {
	return []State{StateUnset, StateReady, StateRunning, StateDone, StateInterrupted, StateKilled, StateDead}
}

// UnmarshalText は未知の状態をデシリアライズ境界で拒否する
func (s *State) UnmarshalText(b []byte) error {
	v := State(strings.ToUpper(strings.TrimSpace(string(b))))
	if v == "" {
		*s = StateUnset
		return nil
	}
	for _, known := range States() {
		if v == known {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("%w: unknown state %q", ErrInvalidRecord, string(b))
}

// ParseState は文字列から State を生成する
func ParseState(s string) (State, error) {
	var st State
	if err := st.UnmarshalText([]byte(s)); err != nil {
		return "", err
	}
	return st, nil
}

// Type はジョブ種別
type Type string

const (
	TypeUnset      Type = "UNSET"
	TypeSeed       Type = "SEED"
	TypeReseed     Type = "RESEED"
	TypeTruncate   Type = "TRUNCATE"
	TypeJobMonitor Type = "JOB_MONITOR"
)

// UnmarshalText は未知のジョブ種別を拒否する
func (t *Type) UnmarshalText(b []byte) error {
	v := Type(strings.ToUpper(strings.TrimSpace(string(b))))
	switch v {
	case "":
		*t = TypeUnset
	case TypeUnset, TypeSeed, TypeReseed, TypeTruncate, TypeJobMonitor:
		*t = v
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidRecord, string(b))
	}
	return nil
}

// Priority はスレッド優先度
type Priority string

const (
	PriorityLowest  Priority = "LOWEST"
	PriorityVeryLow Priority = "VERY_LOW"
	PriorityLow     Priority = "LOW"
	PriorityNormal  Priority = "NORMAL"
	PriorityHigh    Priority = "HIGH"
)

var priorityRanks = map[Priority]int{
	PriorityLowest:  0,
	PriorityVeryLow: 1,
	PriorityLow:     2,
	PriorityNormal:  3,
	PriorityHigh:    4,
}

// Rank は優先度の大小比較用の値を返す
func (p Priority) Rank() int {
	if r, ok := priorityRanks[p]; ok {
		return r
	}
	return priorityRanks[PriorityLow]
}

// UnmarshalText は未知の優先度を拒否する。空はサーバー既定の LOW とみなす
func (p *Priority) UnmarshalText(b []byte) error {
	v := Priority(strings.ToUpper(strings.TrimSpace(string(b))))
	if v == "" {
		*p = PriorityLow
		return nil
	}
	if _, ok := priorityRanks[v]; !ok {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRecord, string(b))
	}
	*p = v
	return nil
}

// LogLevel はジョブログのレベル
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// UnmarshalText は未知のログレベルを拒否する
func (l *LogLevel) UnmarshalText(b []byte) error {
	v := LogLevel(strings.ToUpper(strings.TrimSpace(string(b))))
	switch v {
	case LogLevelInfo, LogLevelWarn, LogLevelError:
		*l = v
		return nil
	}
	return fmt.Errorf("%w: unknown log level %q", ErrInvalidRecord, string(b))
}

// BoundingBox はシード範囲（minx,miny,maxx,maxy）
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// String はワイヤ形式と同じカンマ区切り表現を返す
func (b BoundingBox) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(b.MinX, 'f', -1, 64),
		strconv.FormatFloat(b.MinY, 'f', -1, 64),
		strconv.FormatFloat(b.MaxX, 'f', -1, 64),
		strconv.FormatFloat(b.MaxY, 'f', -1, 64),
	}, ",")
}

// ParseBoundingBox は "minx,miny,maxx,maxy" 形式を解析する
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: bounds must have 4 components: %q", ErrInvalidRecord, s)
	}
	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: invalid bounds component %q", ErrInvalidRecord, p)
		}
		coords[i] = v
	}
	return BoundingBox{MinX: coords[0], MinY: coords[1], MaxX: coords[2], MaxY: coords[3]}, nil
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON は文字列形式と4要素の数値配列の両方を受け付ける
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var coords []float64
		if err := json.Unmarshal(data, &coords); err != nil {
			return fmt.Errorf("%w: invalid bounds: %v", ErrInvalidRecord, err)
		}
		if len(coords) != 4 {
			return fmt.Errorf("%w: bounds must have 4 components, got %d", ErrInvalidRecord, len(coords))
		}
		*b = BoundingBox{MinX: coords[0], MinY: coords[1], MaxX: coords[2], MaxY: coords[3]}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: invalid bounds: %v", ErrInvalidRecord, err)
	}
	parsed, err := ParseBoundingBox(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// SRS は空間参照系（EPSGコード）
type SRS struct {
	Number int
}

func (s SRS) String() string {
	if s.Number == 0 {
		return ""
	}
	return fmt.Sprintf("EPSG:%d", s.Number)
}

func (s SRS) MarshalJSON() ([]byte, error) {
	if s.Number == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Number int `json:"number"`
	}{s.Number})
}

// UnmarshalJSON は {"number":n}、数値、"EPSG:n" のいずれも受け付ける
func (s *SRS) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = SRS{}
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			Number int `json:"number"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("%w: invalid srs: %v", ErrInvalidRecord, err)
		}
		s.Number = obj.Number
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("%w: invalid srs: %v", ErrInvalidRecord, err)
		}
		str = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(str)), "EPSG:")
		if str == "" {
			*s = SRS{}
			return nil
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("%w: invalid srs %q", ErrInvalidRecord, str)
		}
		s.Number = n
	default:
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: invalid srs: %v", ErrInvalidRecord, err)
		}
		s.Number = n
	}
	return nil
}

// TimestampLayout はサーバーが返す日時文字列の形式
const TimestampLayout = "2006-01-02 15:04:05.0"

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Timestamp はサーバー定義の日時文字列（null可）
type Timestamp struct {
	time.Time
}

// NewTimestamp は time.Time から Timestamp を作成する
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: invalid timestamp: %v", ErrInvalidRecord, err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("%w: unrecognised timestamp %q", ErrInvalidRecord, s)
}

// Job はタイルキャッシュのシード/トランケート単位のクライアント側射影
type Job struct {
	JobID     int64        `json:"jobId"`
	LayerName string       `json:"layerName"`
	State     State        `json:"state"`
	JobType   Type         `json:"jobType"`
	Bounds    *BoundingBox `json:"bounds,omitempty"`
	GridSetID string       `json:"gridSetId,omitempty"`
	SRS       SRS          `json:"srs"`

	ThreadCount   int      `json:"threadCount"`
	ZoomStart     int      `json:"zoomStart"`
	ZoomStop      int      `json:"zoomStop"`
	Format        string   `json:"format,omitempty"`
	Throughput    float64  `json:"throughput"`
	MaxThroughput int      `json:"maxThroughput"`
	Priority      Priority `json:"priority"`
	Schedule      string   `json:"schedule,omitempty"`
	RunOnce       bool     `json:"runOnce"`
	Reseed        bool     `json:"reseed"`

	TilesDone       int64 `json:"tilesDone"`
	TilesTotal      int64 `json:"tilesTotal"`
	FailedTileCount int64 `json:"failedTileCount"`
	WarnCount       int64 `json:"warnCount"`
	ErrorCount      int64 `json:"errorCount"`

	TimeFirstStart  Timestamp `json:"timeFirstStart"`
	TimeLatestStart Timestamp `json:"timeLatestStart"`
	TimeSpent       int64     `json:"timeSpent"`     // 秒、-1 は不明
	TimeRemaining   int64     `json:"timeRemaining"` // 秒、-1 は不明

	SpawnedBy         int64  `json:"spawnedBy"`
	FilterUpdate      bool   `json:"filterUpdate"`
	EncodedParameters string `json:"encodedParameters,omitempty"`
}

// NewJob はサーバー側の既定値で初期化された未作成のジョブを返す
func NewJob() *Job {
	return &Job{
		JobID:         UnsetID,
		State:         StateUnset,
		JobType:       TypeUnset,
		ThreadCount:   -1,
		ZoomStart:     -1,
		ZoomStop:      -1,
		MaxThroughput: -1,
		Priority:      PriorityLow,
		TilesDone:     -1,
		TilesTotal:    -1,
		TimeSpent:     -1,
		TimeRemaining: -1,
		SpawnedBy:     UnsetID,
	}
}

// HasNotRunYet は状態が UNSET または READY のときのみ true を返す
func (j *Job) HasNotRunYet() bool {
	return j.State == StateUnset || j.State == StateReady
}

// IsNew はサーバーにまだ作成されていないジョブかどうかを返す
func (j *Job) IsNew() bool {
	return j.JobID == UnsetID
}

// EffectiveType は reseed フラグ付きの SEED を RESEED として扱う
func (j *Job) EffectiveType() Type {
	if j.Reseed && j.JobType == TypeSeed {
		return TypeReseed
	}
	return j.JobType
}

// Copy はジョブのディープコピーを返す
func (j *Job) Copy() *Job {
	c := *j
	if j.Bounds != nil {
		b := *j.Bounds
		c.Bounds = &b
	}
	return &c
}

// Clone は再実行用の新規ジョブを作成する。
// 識別子・状態・進捗カウンタ・計時はリセットし、記述的な設定はそのまま引き継ぐ。
func (j *Job) Clone() *Job {
	c := j.Copy()
	c.JobID = UnsetID
	c.State = StateUnset
	c.TimeSpent = -1
	c.TimeRemaining = -1
	c.TilesDone = -1
	c.TilesTotal = -1
	c.FailedTileCount = 0
	c.WarnCount = 0
	c.ErrorCount = 0
	c.Throughput = 0
	c.TimeFirstStart = Timestamp{}
	c.TimeLatestStart = Timestamp{}
	return c
}

// ContextActions はジョブ一覧のコンテキストメニューで許可される操作
type ContextActions struct {
	CanStop     bool
	CanDelete   bool
	CloneLabel  string // "Clone" または "Rerun"
	DeleteLabel string // "Cancel" または "Delete"
}

// ContextActions はジョブの状態から利用可能な操作を決定する
func (j *Job) ContextActions() ContextActions {
	actions := ContextActions{
		CanStop:   j.State == StateRunning && j.JobType != TypeTruncate,
		CanDelete: j.State != StateRunning,
	}
	if j.HasNotRunYet() || j.State == StateRunning {
		actions.CloneLabel = "Clone"
		actions.DeleteLabel = "Cancel"
	} else {
		actions.CloneLabel = "Rerun"
		actions.DeleteLabel = "Delete"
	}
	return actions
}

// JobLog はジョブ単位のログエントリ（読み取り専用）
type JobLog struct {
	JobLogID   int64     `json:"jobLogId"`
	JobID      int64     `json:"jobId"`
	LogLevel   LogLevel  `json:"logLevel"`
	LogTime    Timestamp `json:"logTime"`
	LogSummary string    `json:"logSummary"`
	LogText    string    `json:"logText"`
}

// Task はタスク一覧画面用の簡略化されたジョブ表現（読み取り専用）
type Task struct {
	TaskID          int64    `json:"taskId"`
	State           State    `json:"state"`
	Type            Type     `json:"type"`
	Reseed          bool     `json:"reseed"`
	LayerName       string   `json:"layerName"`
	TilesDone       int64    `json:"tilesDone"`
	TilesTotal      int64    `json:"tilesTotal"`
	FailedTileCount int64    `json:"failedTileCount"`
	TimeSpent       int64    `json:"timeSpent"`
	TimeRemaining   int64    `json:"timeRemaining"`
	Threads         int      `json:"threads"`
	Priority        Priority `json:"priority"`
	Throughput      float64  `json:"throughput"`
	Schedule        string   `json:"schedule,omitempty"`
	Region          string   `json:"region,omitempty"`
}

// EffectiveType は reseed フラグ付きの SEED を RESEED として扱う
func (t *Task) EffectiveType() Type {
	if t.Reseed && t.Type == TypeSeed {
		return TypeReseed
	}
	return t.Type
}
