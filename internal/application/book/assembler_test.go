package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type chunkCall struct {
	planned    int
	newChapter bool
}

// fakeWriter 返回带编号的固定词数文本，较早派发的分块完成得更晚
type fakeWriter struct {
	wordsPerChunk int
	failAt        int

	mu    sync.Mutex
	calls []chunkCall
}

func (f *fakeWriter) GenerateChunk(ctx context.Context, topic string, planned int, language string, isNewChapter bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, chunkCall{planned: planned, newChapter: isNewChapter})
	f.mu.Unlock()

	if f.failAt > 0 && planned == f.failAt {
		return "", errors.New("chunk failed")
	}

	// 打乱完成顺序，验证按派发顺序拼接
	time.Sleep(time.Duration(5-(planned/500)%5) * time.Millisecond)

	tag := fmt.Sprintf("chunk-%d", planned)
	return tag + " " + words(f.wordsPerChunk-1), nil
}

func (f *fakeWriter) sortedCalls() map[int]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]bool, len(f.calls))
	for _, c := range f.calls {
		out[c.planned] = c.newChapter
	}
	return out
}

type recordingSink struct {
	mu        sync.Mutex
	opened    []string
	closed    []string
	published map[string][]int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{published: make(map[string][]int)}
}

func (r *recordingSink) Open(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, id)
	return nil
}

func (r *recordingSink) Publish(_ context.Context, id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[id] = append(r.published[id], count)
	return nil
}

func (r *recordingSink) Close(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, id)
	return nil
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *outcomeRecorder) GenerationFinished(_ context.Context, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func newTestAssembler(w ChunkWriter, sink ProgressSink) (*Assembler, *[]time.Duration) {
	a := NewAssembler(w, sink, AssemblerConfig{BatchSize: 5, Step: 500, ChapterSpan: 3000, BatchPause: time.Second})
	pauses := &[]time.Duration{}
	a.sleep = func(_ context.Context, d time.Duration) error {
		*pauses = append(*pauses, d)
		return nil
	}
	return a, pauses
}

func TestGenerateBookSingleChunk(t *testing.T) {
	w := &fakeWriter{wordsPerChunk: 520}
	a, pauses := newTestAssembler(w, nil)

	res, err := a.GenerateBook(context.Background(), Request{Topic: "t", Language: "English", TargetWordCount: 500}, nil)
	if err != nil {
		t.Fatalf("GenerateBook: %v", err)
	}
	if len(w.calls) != 1 {
		t.Fatalf("chunks = %d, want 1", len(w.calls))
	}
	if !w.calls[0].newChapter {
		t.Fatal("first chunk must start a new chapter")
	}
	if res.WordCount != 520 || res.WordCount != CountWords(res.Content) {
		t.Fatalf("word count = %d, content words = %d", res.WordCount, CountWords(res.Content))
	}
	if len(*pauses) != 0 {
		t.Fatalf("no pause expected after the final batch, got %v", *pauses)
	}
}

func TestGenerateBookBatchesAndChapters(t *testing.T) {
	w := &fakeWriter{wordsPerChunk: 510}
	sink := newRecordingSink()
	a, pauses := newTestAssembler(w, sink)

	var events []ChunkEvent
	res, err := a.GenerateBook(context.Background(), Request{ID: "req-1", Topic: "t", Language: "English", TargetWordCount: 4000},
		func(ev ChunkEvent) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("GenerateBook: %v", err)
	}

	// 规划计数 0..3500，共 8 个分块，分两批（5 + 3）
	if res.Chunks != 8 {
		t.Fatalf("chunks = %d, want 8", res.Chunks)
	}
	if len(*pauses) != 1 || (*pauses)[0] != time.Second {
		t.Fatalf("pauses = %v, want a single 1s pause between batches", *pauses)
	}

	calls := w.sortedCalls()
	for planned := 0; planned < 4000; planned += 500 {
		want := planned == 0 || planned == 3000
		if calls[planned] != want {
			t.Errorf("planned %d: new chapter = %v, want %v", planned, calls[planned], want)
		}
	}
	if res.Chapters != 2 {
		t.Errorf("chapters = %d, want 2", res.Chapters)
	}

	// 按派发顺序拼接
	parts := strings.Split(res.Content, "\n\n")
	for i, p := range parts {
		if !strings.HasPrefix(p, fmt.Sprintf("chunk-%d ", i*500)) {
			t.Fatalf("part %d starts with %q", i, p[:12])
		}
	}

	if res.WordCount != CountWords(res.Content) {
		t.Fatalf("word count %d != content words %d", res.WordCount, CountWords(res.Content))
	}
	if res.WordCount < 4000 {
		t.Fatalf("word count %d below target", res.WordCount)
	}

	got := sink.published["req-1"]
	if len(got) != 8 {
		t.Fatalf("progress events = %d, want one per chunk", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("progress not monotonic: %v", got)
		}
	}
	if got[len(got)-1] != res.WordCount {
		t.Fatalf("last progress %d != word count %d", got[len(got)-1], res.WordCount)
	}
	if len(sink.opened) != 1 || len(sink.closed) != 1 {
		t.Fatalf("topic lifecycle opened=%v closed=%v", sink.opened, sink.closed)
	}

	if len(events) != 8 || events[0].Index != 0 || !events[0].NewChapter || events[7].WordCount != res.WordCount {
		t.Fatalf("unexpected chunk events: %+v", events)
	}
}

func TestGenerateBookOvershootsTarget(t *testing.T) {
	w := &fakeWriter{wordsPerChunk: 900}
	a, _ := newTestAssembler(w, nil)

	res, err := a.GenerateBook(context.Background(), Request{Topic: "t", Language: "English", TargetWordCount: 1200}, nil)
	if err != nil {
		t.Fatalf("GenerateBook: %v", err)
	}
	// 规划 0, 500, 1000：三个分块，不截断
	if res.Chunks != 3 || res.WordCount != 2700 {
		t.Fatalf("chunks = %d words = %d, want 3 / 2700", res.Chunks, res.WordCount)
	}
}

func TestGenerateBookFailureClosesTopic(t *testing.T) {
	w := &fakeWriter{wordsPerChunk: 500, failAt: 1000}
	sink := newRecordingSink()
	a, _ := newTestAssembler(w, sink)

	_, err := a.GenerateBook(context.Background(), Request{ID: "req-2", Topic: "t", Language: "English", TargetWordCount: 2000}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(sink.published["req-2"]) != 0 {
		t.Fatalf("no progress expected from a failed batch, got %v", sink.published["req-2"])
	}
	if len(sink.closed) != 1 || sink.closed[0] != "req-2" {
		t.Fatalf("topic should be closed on failure, closed=%v", sink.closed)
	}
}

func TestGenerateBookStopsOnCancelledPause(t *testing.T) {
	w := &fakeWriter{wordsPerChunk: 500}
	a, _ := newTestAssembler(w, nil)
	a.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := a.GenerateBook(context.Background(), Request{Topic: "t", Language: "English", TargetWordCount: 5000}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(w.calls) != 5 {
		t.Fatalf("calls = %d, want only the first batch", len(w.calls))
	}
}

func TestGenerateBookRejectsNonPositiveTarget(t *testing.T) {
	a, _ := newTestAssembler(&fakeWriter{wordsPerChunk: 500}, nil)
	if _, err := a.GenerateBook(context.Background(), Request{TargetWordCount: 0}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateBookReportsOutcome(t *testing.T) {
	rec := &outcomeRecorder{}
	a, _ := newTestAssembler(&fakeWriter{wordsPerChunk: 520}, nil)
	a.WithOutcomes(rec)

	res, err := a.GenerateBook(context.Background(), Request{ID: "ok", Topic: "t", Language: "English", TargetWordCount: 1000}, nil)
	if err != nil {
		t.Fatalf("GenerateBook: %v", err)
	}
	if len(rec.outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(rec.outcomes))
	}
	o := rec.outcomes[0]
	if o.Status != "success" || o.Request.ID != "ok" || o.Result != res || o.Err != nil {
		t.Fatalf("outcome = %+v", o)
	}

	failing, _ := newTestAssembler(&fakeWriter{wordsPerChunk: 500, failAt: 500}, nil)
	failing.WithOutcomes(rec)
	if _, err := failing.GenerateBook(context.Background(), Request{ID: "bad", TargetWordCount: 1000}, nil); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.outcomes) != 2 || rec.outcomes[1].Status != "error" || rec.outcomes[1].Err == nil {
		t.Fatalf("failure outcome = %+v", rec.outcomes[len(rec.outcomes)-1])
	}
}
