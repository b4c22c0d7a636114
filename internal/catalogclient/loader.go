package catalogclient

import (
	"context"
	"sync"
)

// ShowLister はカタログ一覧を取得する。*Clientが満たす。
type ShowLister interface {
	ListShows(ctx context.Context, filter Filter) (*ShowPage, error)
}

// LoadResult は画面に表示中の一覧取得結果。
type LoadResult struct {
	Filter Filter
	Page   *ShowPage
	Err    error
}

// Loader は条件の確定ごとに一覧を取得し、最新の要求に対する応答だけを表示状態に反映する。
//
// 実行中の取得は取り消さない。要求には発行順の番号を振り、
// 既に反映済みの要求より古い応答は到着しても破棄する。
type Loader struct {
	lister   ShowLister
	onResult func(LoadResult)

	// applyMu は反映とonResultの呼び出しを直列化する
	applyMu sync.Mutex

	mu      sync.Mutex
	issued  uint64
	applied uint64
	result  LoadResult
	loaded  bool
}

// NewLoader はLoaderを生成する。onResultは応答を反映するたびに呼ばれる（nil可）。
func NewLoader(lister ShowLister, onResult func(LoadResult)) *Loader {
	return &Loader{lister: lister, onResult: onResult}
}

// Load は条件に一致する一覧を取得する。呼び出し元のgoroutineでブロックする。
// 応答を反映した場合はtrue、より新しい応答が反映済みで破棄した場合はfalseを返す。
func (l *Loader) Load(ctx context.Context, filter Filter) bool {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.mu.Unlock()

	page, err := l.lister.ListShows(ctx, filter)
	res := LoadResult{Filter: filter, Page: page, Err: err}

	l.applyMu.Lock()
	defer l.applyMu.Unlock()

	l.mu.Lock()
	if seq < l.applied {
		l.mu.Unlock()
		return false
	}
	l.applied = seq
	l.result = res
	l.loaded = true
	l.mu.Unlock()

	if l.onResult != nil {
		l.onResult(res)
	}
	return true
}

// Result は最後に反映した結果を返す。まだ反映していない場合はfalseを返す。
func (l *Loader) Result() (LoadResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result, l.loaded
}

// Loading は反映待ちの要求があるかを返す。
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied < l.issued
}
