package catalogclient

import (
	"reflect"
	"testing"
	"time"
)

func newTestDebouncer() (*Debouncer, *fakeClock, *recorder[string]) {
	clock := newFakeClock()
	rec := &recorder[string]{}
	return NewDebouncer(clock, DefaultDebounce, rec.record), clock, rec
}

// TestDebouncer_FastTypingCommitsOnce は静止時間内の連続入力が最後の値1回だけ確定することを検証する。
func TestDebouncer_FastTypingCommitsOnce(t *testing.T) {
	d, clock, rec := newTestDebouncer()

	d.Push("m")
	clock.Advance(100 * time.Millisecond)
	d.Push("ma")
	clock.Advance(100 * time.Millisecond)
	d.Push("mat")
	clock.Advance(299 * time.Millisecond)

	if got := rec.all(); len(got) != 0 {
		t.Fatalf("committed before quiet period elapsed: %v", got)
	}

	clock.Advance(time.Millisecond)
	if got := rec.all(); !reflect.DeepEqual(got, []string{"mat"}) {
		t.Errorf("commits = %v, want [mat]", got)
	}
	if d.Pending() {
		t.Error("no input should be pending after commit")
	}
}

// TestDebouncer_SameValueIsNotCommittedTwice は直前の確定値と同じ値を再確定しないことを検証する。
func TestDebouncer_SameValueIsNotCommittedTwice(t *testing.T) {
	d, clock, rec := newTestDebouncer()

	d.Push("mat")
	clock.Advance(DefaultDebounce)
	d.Push("matr")
	clock.Advance(100 * time.Millisecond)
	d.Push(" mat ")
	clock.Advance(DefaultDebounce)

	if got := rec.all(); !reflect.DeepEqual(got, []string{"mat"}) {
		t.Errorf("commits = %v, want [mat]", got)
	}
}

func TestDebouncer_CloseCancelsPending(t *testing.T) {
	d, clock, rec := newTestDebouncer()

	d.Push("matrix")
	d.Close()
	clock.Advance(time.Second)
	d.Push("again")
	clock.Advance(time.Second)

	if got := rec.all(); len(got) != 0 {
		t.Errorf("commits after Close = %v, want none", got)
	}
}

// TestDebouncer_ResetReplacesCommittedValue はResetが保留中の入力を破棄し、比較対象の値を置き換えることを検証する。
func TestDebouncer_ResetReplacesCommittedValue(t *testing.T) {
	d, clock, rec := newTestDebouncer()

	d.Push("abc")
	d.Reset("matrix")
	clock.Advance(time.Second)
	if got := rec.all(); len(got) != 0 {
		t.Fatalf("pending input should be discarded by Reset, got %v", got)
	}

	d.Push("matrix")
	clock.Advance(time.Second)
	if got := rec.all(); len(got) != 0 {
		t.Errorf("value equal to the reset value should not commit, got %v", got)
	}

	d.Push("")
	clock.Advance(time.Second)
	if got := rec.all(); !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("commits = %v, want [\"\"]", got)
	}
}

func TestDebouncer_SystemClock(t *testing.T) {
	done := make(chan string, 1)
	d := NewDebouncer(nil, 10*time.Millisecond, func(v string) { done <- v })
	defer d.Close()

	d.Push("x")
	select {
	case v := <-done:
		if v != "x" {
			t.Errorf("committed %q, want x", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not fire on the system clock")
	}
}
