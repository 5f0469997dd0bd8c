package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"studio/internal/domain"
	"studio/internal/render"
)

type fakeProjects struct {
	ids []string
	err error
}

func (f *fakeProjects) Get(ctx context.Context, id string) (*domain.Project, error) {
	return &domain.Project{ID: id}, nil
}

func (f *fakeProjects) ListCharacters(ctx context.Context, projectID string) ([]domain.Character, error) {
	return nil, nil
}

func (f *fakeProjects) ListRenderable(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

type fakeRenderer struct {
	calls    []string
	selector string
	aspect   string
	failFor  string
	onRender func(cancel *render.Cancel)
}

func (f *fakeRenderer) RenderProject(ctx context.Context, projectID, selector, aspect string, cancel *render.Cancel, onProgress func(render.Progress)) (render.Progress, error) {
	f.calls = append(f.calls, projectID)
	f.selector, f.aspect = selector, aspect
	if f.onRender != nil {
		f.onRender(cancel)
	}
	if projectID == f.failFor {
		return render.Progress{}, errors.New("list scenes: boom")
	}
	p := render.Progress{Total: 1, Done: 1, Cancelled: cancel.Requested()}
	onProgress(p)
	return p, nil
}

func TestSweepRendersEachProject(t *testing.T) {
	renderer := &fakeRenderer{failFor: "p2"}
	tracker := render.NewTracker(nil)
	s := New(Options{
		Projects: &fakeProjects{ids: []string{"p1", "p2", "p3"}},
		Runner:   renderer,
		Tracker:  tracker,
	})

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 processed projects, got %d", n)
	}
	if len(renderer.calls) != 3 {
		t.Fatalf("expected 3 render calls, got %v", renderer.calls)
	}
	if renderer.selector != render.Auto || renderer.aspect != "16:9" {
		t.Fatalf("unexpected defaults %q %q", renderer.selector, renderer.aspect)
	}
	if running := tracker.Running(); len(running) != 0 {
		t.Fatalf("expected no running batches, got %v", running)
	}
	progress, ok := tracker.Get("p1")
	if !ok || !progress.Finished || progress.Done != 1 {
		t.Fatalf("unexpected tracked progress %+v (found=%v)", progress, ok)
	}
}

func TestSweepSkipsProjectsAlreadyRendering(t *testing.T) {
	renderer := &fakeRenderer{}
	tracker := render.NewTracker(nil)
	if _, err := tracker.Start("busy"); err != nil {
		t.Fatalf("start: %v", err)
	}
	s := New(Options{
		Projects: &fakeProjects{ids: []string{"busy", "free"}},
		Runner:   renderer,
		Tracker:  tracker,
	})

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(renderer.calls) != 1 || renderer.calls[0] != "free" {
		t.Fatalf("expected only the free project to render, got %d %v", n, renderer.calls)
	}
}

func TestStopCancelsCurrentBatchAndSkipsRest(t *testing.T) {
	renderer := &fakeRenderer{}
	s := New(Options{
		Projects: &fakeProjects{ids: []string{"p1", "p2"}},
		Runner:   renderer,
	})
	renderer.onRender = func(cancel *render.Cancel) {
		s.Stop()
		if !cancel.Requested() {
			t.Error("expected current batch to be cancelled")
		}
	}

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(renderer.calls) != 1 {
		t.Fatalf("expected sweep to stop after the first project, got %d %v", n, renderer.calls)
	}
}

func TestSweepListError(t *testing.T) {
	s := New(Options{Projects: &fakeProjects{err: errors.New("db down")}, Runner: &fakeRenderer{}})
	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	s := New(Options{Projects: &fakeProjects{}, Runner: &fakeRenderer{}})
	c := cron.New()
	if _, err := s.Schedule(context.Background(), c, "not a schedule"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := s.Schedule(context.Background(), c, "@every 5m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("expected one entry, got %d", len(c.Entries()))
	}
}

type resettingRenderer struct {
	fakeRenderer
	olderThan []time.Duration
}

func (r *resettingRenderer) ResetStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	r.olderThan = append(r.olderThan, olderThan)
	return 1, nil
}

func TestSweepResetsStaleScenesFirst(t *testing.T) {
	renderer := &resettingRenderer{}
	s := New(Options{
		Projects:   &fakeProjects{ids: []string{"p1"}},
		Runner:     renderer,
		StaleAfter: 10 * time.Minute,
	})
	if _, err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(renderer.olderThan) != 1 || renderer.olderThan[0] != 10*time.Minute {
		t.Fatalf("unexpected resets %v", renderer.olderThan)
	}

	renderer.olderThan = nil
	s = New(Options{Projects: &fakeProjects{}, Runner: renderer})
	if _, err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(renderer.olderThan) != 0 {
		t.Fatal("reset should be off without StaleAfter")
	}
}
