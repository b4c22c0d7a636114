package catalogclient

import (
	"sync"
	"time"
)

// Navigator はブラウザのURLを書き換える。履歴は増やさず現在のエントリを置き換える。
type Navigator interface {
	Replace(rawQuery string)
}

// NavigatorFunc は関数をNavigatorとして扱うアダプタ。
type NavigatorFunc func(rawQuery string)

// Replace はf(rawQuery)を呼ぶ。
func (f NavigatorFunc) Replace(rawQuery string) { f(rawQuery) }

// SynchronizerConfig はSynchronizerの設定。
type SynchronizerConfig struct {
	Navigator Navigator
	Clock     Clock
	Debounce  time.Duration
	// OnChange は確定した条件が変わるたびに呼ばれる（通常は一覧の再取得）。
	OnChange func(Filter)
}

// Synchronizer はカタログ画面の検索条件とURLクエリを双方向に同期する。
//
// タイトルとキャストの入力はそれぞれ独立したDebouncerを持ち、
// 一方の入力がもう一方の保留中のタイマーに影響することはない。
// タイトル・キャスト・種別の変更はページを1に戻し、ページの変更は他の条件を維持する。
// 確定はcommitMuで直列化し、URLの書き換えとOnChangeは確定順に呼ばれる。
// OnChangeの中から同じSynchronizerの変更系メソッドを同期的に呼んではならない。
type Synchronizer struct {
	nav      Navigator
	onChange func(Filter)

	title *Debouncer
	cast  *Debouncer

	commitMu sync.Mutex

	mu      sync.RWMutex
	current Filter
	closed  bool
}

// NewSynchronizer は初期URLクエリから条件を復元したSynchronizerを生成する。
func NewSynchronizer(initialQuery string, cfg SynchronizerConfig) *Synchronizer {
	s := &Synchronizer{
		nav:      cfg.Navigator,
		onChange: cfg.OnChange,
		current:  ParseFilter(initialQuery),
	}
	s.title = newDebouncer(cfg.Clock, cfg.Debounce, s.commitTitle)
	s.cast = newDebouncer(cfg.Clock, cfg.Debounce, s.commitCast)
	s.title.Reset(s.current.TitleSearch)
	s.cast.Reset(s.current.CastSearch)
	return s
}

// Filter は現在確定している条件を返す。
func (s *Synchronizer) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// InputTitle はタイトル検索欄の入力を受け取る。確定はデバウンス後。
func (s *Synchronizer) InputTitle(value string) { s.title.Push(value) }

// InputCast はキャスト検索欄の入力を受け取る。確定はデバウンス後。
func (s *Synchronizer) InputCast(value string) { s.cast.Push(value) }

// SetType は種別フィルタを即時に確定する。変更があればページを1に戻す。
func (s *Synchronizer) SetType(t TypeFilter) {
	t = ParseTypeFilter(string(t))
	s.commit(nil, func(f Filter) Filter {
		if f.Type != t {
			f.Type = t
			f.Page = 1
		}
		return f
	})
}

// SetPage はページ番号を即時に確定する。他の条件は維持する。
func (s *Synchronizer) SetPage(page int) {
	s.commit(nil, func(f Filter) Filter {
		f.Page = page
		return f
	})
}

// Navigate は戻る・進むや共有リンクによるURLの変更を反映する。
// 保留中の入力は破棄し、URLから復元した条件を確定する。URLは書き換えない。
func (s *Synchronizer) Navigate(rawQuery string) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	next := ParseFilter(rawQuery)
	s.title.Reset(next.TitleSearch)
	s.cast.Reset(next.CastSearch)

	s.mu.Lock()
	if s.closed || next == s.current {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(next)
	}
}

// Close は保留中のタイマーを取り消す。以後の確定は行われない。
func (s *Synchronizer) Close() {
	s.title.Close()
	s.cast.Close()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// commitTitle はタイトル入力の確定。発火後にNavigateが割り込んだ場合は破棄する。
func (s *Synchronizer) commitTitle(value string, epoch uint64) {
	s.commit(func() bool { return s.title.isCurrent(epoch) }, func(f Filter) Filter {
		if f.TitleSearch != value {
			f.TitleSearch = value
			f.Page = 1
		}
		return f
	})
}

func (s *Synchronizer) commitCast(value string, epoch uint64) {
	s.commit(func() bool { return s.cast.isCurrent(epoch) }, func(f Filter) Filter {
		if f.CastSearch != value {
			f.CastSearch = value
			f.Page = 1
		}
		return f
	})
}

// commit は条件を更新し、変化があればURLを書き換えてOnChangeを呼ぶ。
// validがfalseを返す場合は何もしない。validはcommitMuを保持した状態で評価する。
func (s *Synchronizer) commit(valid func() bool, update func(Filter) Filter) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if valid != nil && !valid() {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	next := update(s.current).Normalize()
	if next == s.current {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.mu.Unlock()

	if s.nav != nil {
		s.nav.Replace(next.Encode())
	}
	if s.onChange != nil {
		s.onChange(next)
	}
}
