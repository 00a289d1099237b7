package job

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
)

// drain reads the whole sequence and reports whether it ended on its own.
func drain(j *Job, from int) ([]Event, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out []Event
	for e := range j.Events(ctx, from) {
		out = append(out, e)
	}
	return out, ctx.Err() == nil
}

func collect(t *testing.T, j *Job, from int) []Event {
	t.Helper()
	out, ok := drain(j, from)
	if !ok {
		t.Fatal("event sequence did not terminate")
	}
	return out
}

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestPushAndComplete(t *testing.T) {
	j := newJob("j1", 0)
	j.Push(KindInfo, "start")
	j.Push(KindStep, "work")

	if !j.Complete(map[string]string{"summary": "ok"}, nil) {
		t.Fatal("first Complete() should report true")
	}
	if j.Complete(nil, errors.New("late")) {
		t.Fatal("second Complete() should be a no-op")
	}
	if j.Push(KindError, "after done") {
		t.Fatal("Push after completion should be dropped")
	}

	st := j.Status()
	if !st.Done || st.Error != "" || st.Result == nil || st.Events != 2 {
		t.Fatalf("status = %+v", st)
	}

	events := collect(t, j, 0)
	if got := kinds(events); !slices.Equal(got, []Kind{KindInfo, KindStep, KindDone}) {
		t.Fatalf("kinds = %v", got)
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Fatalf("event %d seq = %d", i, e.Seq)
		}
	}
	select {
	case <-j.Finished():
	default:
		t.Fatal("Finished() not closed")
	}
}

func TestFailedJobHasNoResult(t *testing.T) {
	j := newJob("j2", 0)
	j.Complete(map[string]string{"partial": "x"}, errors.New("transcription failed"))
	st := j.Status()
	if st.Result != nil || st.Error != "transcription failed" {
		t.Fatalf("status = %+v", st)
	}
}

func TestReplayIsIdentical(t *testing.T) {
	j := newJob("j3", 0)
	j.Push(KindInfo, "a")
	j.Push(KindOK, "b")
	j.Complete("result", nil)

	first, _ := json.Marshal(collect(t, j, 0))
	second, _ := json.Marshal(collect(t, j, 0))
	if string(first) != string(second) {
		t.Fatalf("replays differ:\n%s\n%s", first, second)
	}
}

func TestLiveSubscribersSeeSameSequence(t *testing.T) {
	j := newJob("j4", 50*time.Millisecond)

	var wg sync.WaitGroup
	results := make([][]Event, 2)
	ended := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], ended[i] = drain(j, 0)
		}()
	}

	for _, text := range []string{"one", "two", "three"} {
		time.Sleep(5 * time.Millisecond)
		j.Push(KindStep, text)
	}
	j.Complete(nil, errors.New("boom"))
	wg.Wait()

	if !ended[0] || !ended[1] {
		t.Fatal("event sequence did not terminate")
	}
	a, _ := json.Marshal(results[0])
	b, _ := json.Marshal(results[1])
	if string(a) != string(b) {
		t.Fatalf("subscribers diverged:\n%s\n%s", a, b)
	}
	if len(results[0]) != 4 || results[0][3].Error != "boom" {
		t.Fatalf("events = %+v", results[0])
	}
}

func TestSubscribeFromOffset(t *testing.T) {
	j := newJob("j5", 0)
	j.Push(KindInfo, "a")
	j.Push(KindStep, "b")
	j.Push(KindOK, "c")
	j.Complete(nil, nil)

	events := collect(t, j, 2)
	if len(events) != 2 || events[0].Text != "c" || events[1].Type != KindDone || events[1].Seq != 4 {
		t.Fatalf("events = %+v", events)
	}

	if events := collect(t, j, 99); len(events) != 1 || events[0].Type != KindDone {
		t.Fatalf("past-the-end events = %+v", events)
	}
}

func TestCursorStopsOnContextCancel(t *testing.T) {
	j := newJob("j6", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c := j.Subscribe(0)

	done := make(chan bool)
	go func() {
		_, ok := c.Next(ctx)
		done <- ok
	}()
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("Next should report false after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancellation")
	}
}

func TestEventJSON(t *testing.T) {
	step, _ := json.Marshal(Event{Seq: 1, Type: KindStep, Text: "Extracting audio...", Time: time.Unix(10, 0)})
	if string(step) != `{"seq":1,"type":"step","text":"Extracting audio...","ts":10}` {
		t.Fatalf("step json = %s", step)
	}

	done, _ := json.Marshal(Event{Seq: 2, Type: KindDone, Error: "boom", Time: time.Unix(11, 0)})
	if string(done) != `{"seq":2,"type":"done","result":null,"error":"boom","cleanup_error":null,"ts":11}` {
		t.Fatalf("done json = %s", done)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(nil, 0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Create(context.Background())
		}()
	}
	wg.Wait()

	if m.Len() != 20 || len(m.List()) != 20 {
		t.Fatalf("Len() = %d", m.Len())
	}
	j := m.List()[0]
	got, err := m.Get(j.ID)
	if err != nil || got != j {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v", err)
	}
}
