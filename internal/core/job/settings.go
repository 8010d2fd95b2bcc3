package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Retention は古いジョブを削除するまでの保持期間（秒）。0 は削除しない
type Retention int64

const (
	RetentionDay   Retention = 86400
	RetentionWeek  Retention = 604800
	RetentionMonth Retention = 2600640
	RetentionYear  Retention = 31536000
	RetentionNever Retention = 0
)

var retentionNames = []struct {
	name  string
	value Retention
}{
	{"day", RetentionDay},
	{"week", RetentionWeek},
	{"month", RetentionMonth},
	{"year", RetentionYear},
	{"never", RetentionNever},
}

// RetentionChoices は選択肢の名前を表示順で返す
func RetentionChoices() []string {
	names := make([]string, 0, len(retentionNames))
	for _, r := range retentionNames {
		names = append(names, r.name)
	}
	return names
}

// ParseRetention は名前（day/week/month/year/never）または秒数から保持期間を解析する
func ParseRetention(s string) (Retention, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range retentionNames {
		if r.name == s {
			return r.value, nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q (choose one of %s)", ErrInvalidRetention, s, strings.Join(RetentionChoices(), ", "))
	}
	return Retention(n), nil
}

// Label は保持期間の表示名を返す。プリセット以外は秒数をそのまま表示する
func (r Retention) Label() string {
	for _, named := range retentionNames {
		if named.value == r {
			return named.name
		}
	}
	return fmt.Sprintf("%d seconds", int64(r))
}

// IsPreset はプリセット値のいずれかであるかを返す
func (r Retention) IsPreset() bool {
	for _, named := range retentionNames {
		if named.value == r {
			return true
		}
	}
	return false
}

// UnmarshalJSON は数値と数値文字列（フォーム送信由来）の両方を受け付ける
func (r *Retention) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*r = RetentionNever
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: invalid clearOldJobs: %v", ErrInvalidRecord, err)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid clearOldJobs %q", ErrInvalidRecord, s)
		}
		*r = Retention(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: invalid clearOldJobs: %v", ErrInvalidRecord, err)
	}
	*r = Retention(n)
	return nil
}

// Settings はジョブ管理のグローバル設定
type Settings struct {
	ClearOldJobs Retention `json:"clearOldJobs"`
}
