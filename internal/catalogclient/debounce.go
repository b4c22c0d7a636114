package catalogclient

import (
	"sync"
	"time"
)

// DefaultDebounce は入力が確定するまでの静止時間。
const DefaultDebounce = 300 * time.Millisecond

// Debouncer は1つの入力欄のデバウンスを行う。
//
// Pushのたびに保留中のタイマーを取り消し、静止時間が経過した時点の値だけを確定する。
// 直前に確定した値と同じ値は確定しない。
// 世代番号で発火を照合するため、Stopが間に合わなかったタイマーの発火も無視される。
//
// epochはResetとCloseでのみ進む。確定の呼び出し側はepochを受け取り、
// 自身のロックの中でisCurrentを確認することで、発火とResetの競合で古い値を確定しないようにできる。
type Debouncer struct {
	clock  Clock
	delay  time.Duration
	commit func(value string, epoch uint64)

	mu        sync.Mutex
	timer     Timer
	gen       uint64
	epoch     uint64
	committed string
	closed    bool
}

// NewDebouncer はDebouncerを生成する。clockがnilの場合は実時間を使う。
// commitはタイマーのgoroutineから呼ばれる。
func NewDebouncer(clock Clock, delay time.Duration, commit func(string)) *Debouncer {
	return newDebouncer(clock, delay, func(value string, _ uint64) { commit(value) })
}

func newDebouncer(clock Clock, delay time.Duration, commit func(string, uint64)) *Debouncer {
	if clock == nil {
		clock = SystemClock{}
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{clock: clock, delay: delay, commit: commit}
}

// Push は入力値を受け取り、静止時間後の確定を予約する。
func (d *Debouncer) Push(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen, value) })
}

// Reset は保留中の確定を取り消し、確定済みの値を置き換える。
// URLからの復元など、入力欄の外で値が決まった場合に使う。
func (d *Debouncer) Reset(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	d.epoch++
	d.committed = normalizeText(value)
}

// Pending は確定待ちの入力があるかを返す。
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Close は保留中の確定を取り消し、以後の入力を無視する。
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	d.epoch++
	d.closed = true
}

// isCurrent はepochの時点から後にResetもCloseもされていないかを返す。
func (d *Debouncer) isCurrent(epoch uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed && d.epoch == epoch
}

func (d *Debouncer) fire(gen uint64, value string) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	value = normalizeText(value)
	if value == d.committed {
		d.mu.Unlock()
		return
	}
	d.committed = value
	epoch := d.epoch
	d.mu.Unlock()

	d.commit(value, epoch)
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
