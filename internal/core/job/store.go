package job

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/samber/mo"
)

// Store はサーバー上のコレクションを写すクライアント側のレコードストア。
// 内容を書き換えるのは Replace（ロード成功時の全置換）のみで、マージは行わない。
type Store[T any] struct {
	mu       sync.RWMutex
	items    []T
	compare  func(a, b T) int
	now      func() time.Time
	loadedAt time.Time
	lastErr  error
}

// NewStore はソート順を指定してストアを作成する。compare が nil の場合はサーバー順を保持する
func NewStore[T any](compare func(a, b T) int) *Store[T] {
	return &Store[T]{
		compare: compare,
		now:     time.Now,
	}
}

// Replace はストアの内容を全置換し、ソート順を再適用する
func (s *Store[T]) Replace(items []T) {
	replaced := slices.Clone(items)
	if s.compare != nil {
		slices.SortStableFunc(replaced, s.compare)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = replaced
	s.loadedAt = s.now()
	s.lastErr = nil
}

// MarkFailed はロード失敗を記録する。既存の内容は変更しない
func (s *Store[T]) MarkFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// Items は現在の内容のコピーを返す
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len はレコード数を返す
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get は i 番目のレコードを返す
func (s *Store[T]) Get(i int) mo.Option[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.items) {
		return mo.None[T]()
	}
	return mo.Some(s.items[i])
}

// Find は条件に一致する最初のレコードを返す
func (s *Store[T]) Find(pred func(T) bool) mo.Option[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if pred(item) {
			return mo.Some(item)
		}
	}
	return mo.None[T]()
}

// LoadedAt は最後にロードに成功した時刻を返す（未ロードならゼロ値）
func (s *Store[T]) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// LastError は直近のロード失敗を返す。成功したロードでクリアされる
func (s *Store[T]) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Stale は直近のロードが失敗し、表示中の内容が古い可能性があるかを返す
func (s *Store[T]) Stale() bool {
	return s.LastError() != nil
}

// CompareJobs はジョブを開始時刻の降順に並べる。未開始のジョブを先頭に置き、同時刻はID降順
func CompareJobs(a, b *Job) int {
	aStarted, bStarted := !a.TimeFirstStart.IsZero(), !b.TimeFirstStart.IsZero()
	switch {
	case aStarted != bStarted:
		if !aStarted {
			return -1
		}
		return 1
	case aStarted:
		if c := b.TimeFirstStart.Compare(a.TimeFirstStart.Time); c != 0 {
			return c
		}
	}
	return cmp.Compare(b.JobID, a.JobID)
}

// CompareJobLogs はログを時刻の昇順、同時刻はログID昇順に並べる
func CompareJobLogs(a, b *JobLog) int {
	if c := a.LogTime.Compare(b.LogTime.Time); c != 0 {
		return c
	}
	return cmp.Compare(a.JobLogID, b.JobLogID)
}

// CompareTasks はタスクを優先度の降順、同優先度はタスクID昇順に並べる
func CompareTasks(a, b *Task) int {
	if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
		return c
	}
	return cmp.Compare(a.TaskID, b.TaskID)
}
