package catalogclient

import "time"

// Clock はタイマーの生成元。テストでは時刻を手動で進める実装に差し替える。
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer は停止可能なタイマー。
type Timer interface {
	// Stop はタイマーを停止する。既に発火済みまたは停止済みの場合はfalseを返す。
	Stop() bool
}

// SystemClock は実時間のClock。
type SystemClock struct{}

// AfterFunc はtime.AfterFuncでタイマーを開始する。
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
