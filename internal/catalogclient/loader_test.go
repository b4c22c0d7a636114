package catalogclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockingLister はタイトル検索ごとに応答のタイミングをテストから制御する。
type blockingLister struct {
	entered chan string
	release map[string]chan struct{}
}

func newBlockingLister(titles ...string) *blockingLister {
	l := &blockingLister{
		entered: make(chan string, len(titles)),
		release: make(map[string]chan struct{}, len(titles)),
	}
	for _, title := range titles {
		l.release[title] = make(chan struct{})
	}
	return l
}

func (l *blockingLister) ListShows(ctx context.Context, filter Filter) (*ShowPage, error) {
	l.entered <- filter.TitleSearch
	<-l.release[filter.TitleSearch]
	return &ShowPage{
		Items:      []Show{{ShowID: filter.TitleSearch, Title: filter.TitleSearch}},
		Page:       filter.Page,
		TotalItems: 1,
		TotalPages: 1,
	}, nil
}

func waitEntered(t *testing.T, l *blockingLister, want string) {
	t.Helper()
	select {
	case got := <-l.entered:
		if got != want {
			t.Fatalf("entered %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("request %q did not start", want)
	}
}

// TestLoader_DiscardsStaleResponse は古い条件の応答が新しい応答の後に届いた場合に破棄されることを検証する。
func TestLoader_DiscardsStaleResponse(t *testing.T) {
	lister := newBlockingLister("mat", "matrix")
	var applied recorder[LoadResult]
	loader := NewLoader(lister, applied.record)

	staleDone := make(chan bool, 1)
	go func() { staleDone <- loader.Load(context.Background(), Filter{TitleSearch: "mat", Page: 1}) }()
	waitEntered(t, lister, "mat")

	freshDone := make(chan bool, 1)
	go func() { freshDone <- loader.Load(context.Background(), Filter{TitleSearch: "matrix", Page: 1}) }()
	waitEntered(t, lister, "matrix")

	if !loader.Loading() {
		t.Error("Loading() should be true while requests are in flight")
	}

	close(lister.release["matrix"])
	if ok := <-freshDone; !ok {
		t.Fatal("the newest response should be applied")
	}

	close(lister.release["mat"])
	if ok := <-staleDone; ok {
		t.Fatal("the stale response should be discarded")
	}

	res, loaded := loader.Result()
	if !loaded {
		t.Fatal("expected a loaded result")
	}
	if res.Filter.TitleSearch != "matrix" || res.Page.Items[0].ShowID != "matrix" {
		t.Errorf("visible result = %+v, want the matrix page", res)
	}
	if got := applied.all(); len(got) != 1 {
		t.Errorf("onResult calls = %d, want 1", len(got))
	}
	if loader.Loading() {
		t.Error("Loading() should be false once the newest response is applied")
	}
}

// TestLoader_InOrderResponsesAreApplied は順番どおりに届いた応答はすべて反映されることを検証する。
func TestLoader_InOrderResponsesAreApplied(t *testing.T) {
	lister := newBlockingLister("a", "b")
	close(lister.release["a"])
	close(lister.release["b"])
	loader := NewLoader(lister, nil)

	if !loader.Load(context.Background(), Filter{TitleSearch: "a"}) {
		t.Error("first response should be applied")
	}
	if !loader.Load(context.Background(), Filter{TitleSearch: "b"}) {
		t.Error("second response should be applied")
	}
	res, _ := loader.Result()
	if res.Filter.TitleSearch != "b" {
		t.Errorf("visible filter = %+v, want b", res.Filter)
	}
}

type errLister struct{ err error }

func (l errLister) ListShows(ctx context.Context, filter Filter) (*ShowPage, error) {
	return nil, l.err
}

func TestLoader_RecordsError(t *testing.T) {
	loader := NewLoader(errLister{err: ErrUnavailable}, nil)

	if _, loaded := loader.Result(); loaded {
		t.Fatal("no result expected before the first load")
	}
	loader.Load(context.Background(), Filter{Page: 1})

	res, loaded := loader.Result()
	if !loaded || !errors.Is(res.Err, ErrUnavailable) {
		t.Errorf("result = %+v, want ErrUnavailable", res)
	}
}
