package job

import (
	"errors"
	"fmt"
)

var (
	// ErrJobIDAssigned は作成要求に割り当て済みのIDが含まれている場合のエラー
	ErrJobIDAssigned = errors.New("job id must be -1 for creation")

	// ErrJobIDUnset は更新/削除対象のIDが未割り当ての場合のエラー
	ErrJobIDUnset = errors.New("job id is not assigned")

	// ErrActionNotAllowed は現在の状態では許可されない操作を要求した場合のエラー
	ErrActionNotAllowed = errors.New("action not allowed in current state")

	// ErrInvalidRecord はレスポンスのレコードがスキーマに合致しない場合のエラー
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidRetention は保持期間の指定が不正な場合のエラー
	ErrInvalidRetention = errors.New("invalid retention")

	// ErrHistoryDisabled は進捗履歴が構成されていない場合のエラー
	ErrHistoryDisabled = errors.New("progress history is not configured")
)

// RequestError はREST呼び出しの失敗を表す。
// 通信失敗は Status 0、非2xx応答はステータスと生のレスポンスボディを保持する。
type RequestError struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// AsRequestError はエラーチェーンから RequestError を取り出す
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// IsStatus はエラーが指定したHTTPステータスの応答によるものかを返す
func IsStatus(err error, status int) bool {
	reqErr, ok := AsRequestError(err)
	return ok && reqErr.Status == status
}
