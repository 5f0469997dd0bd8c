package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/domain"
	"studio/internal/infra/sqltest"
	"studio/internal/sqlinline"
)

func sceneRow(id, status string) []any {
	return []any{
		id, "proj-1", 1, "Opening", "A quiet harbor", "harbor at dawn", "wide shot", "golden hour",
		5, "Mara: We leave tonight.", `["Mara","Tomas"]`, status, "", "", "", "", 0,
	}
}

func TestSceneRepositoryListDecodesCharacters(t *testing.T) {
	exec := &sqltest.Executor{
		OnQuery: func(query string, args []any) (pgx.Rows, error) {
			if query != sqlinline.QListScenesByProject || args[0] != "proj-1" {
				t.Fatalf("unexpected query %q %v", query, args)
			}
			return sqltest.NewRows([][]any{sceneRow("s1", "pending"), sceneRow("s2", "failed")}), nil
		},
	}
	scenes, err := NewSceneRepository(exec).ListByProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	if scenes[1].Status != domain.SceneStatusFailed || !scenes[1].Status.Renderable() {
		t.Fatalf("expected renderable failed scene, got %s", scenes[1].Status)
	}
	if len(scenes[0].Characters) != 2 || scenes[0].Characters[1] != "Tomas" {
		t.Fatalf("unexpected characters: %v", scenes[0].Characters)
	}
}

func TestSceneRepositoryGetMissing(t *testing.T) {
	exec := &sqltest.Executor{
		OnQueryRow: func(string, []any) pgx.Row { return sqltest.Row{} },
	}
	_, err := NewSceneRepository(exec).Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSceneRepositoryCreateAndUpdate(t *testing.T) {
	exec := &sqltest.Executor{}
	repo := NewSceneRepository(exec)
	ctx := context.Background()

	scene := &domain.Scene{ID: "s1", ProjectID: "p1", Number: 1, Prompt: "storm", Duration: 5}
	if err := repo.Create(ctx, scene); err != nil {
		t.Fatalf("create: %v", err)
	}
	if scene.Status != domain.SceneStatusPending {
		t.Fatalf("expected pending status, got %s", scene.Status)
	}
	inserts := exec.ExecsMatching("insert into scenes")
	if len(inserts) != 1 || inserts[0].Args[10] != "[]" {
		t.Fatalf("expected empty characters array, got %+v", inserts)
	}

	err := repo.UpdateStatus(ctx, "s1", domain.SceneUpdate{Status: domain.SceneStatusCompleted, VideoURL: "https://cdn/v.mp4", Provider: "kling"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	updates := exec.ExecsMatching("update scenes")
	if len(updates) != 1 || updates[0].Args[1] != "completed" || updates[0].Args[4] != "kling" {
		t.Fatalf("unexpected update args: %+v", updates)
	}
}

func TestProjectRepositoryGet(t *testing.T) {
	exec := &sqltest.Executor{
		OnQueryRow: func(query string, args []any) pgx.Row {
			return sqltest.Row{Values: []any{"p1", "Harbor", "drama", "Two smugglers", "noir"}}
		},
	}
	p, err := NewProjectRepository(exec).Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Tone != "noir" || p.Name != "Harbor" {
		t.Fatalf("unexpected project: %+v", p)
	}
}

func TestVideoJobRepositoryLogsCostOnStart(t *testing.T) {
	exec := &sqltest.Executor{
		OnQueryRow: func(string, []any) pgx.Row { return sqltest.Row{Values: []any{2.8}} },
	}
	repo := NewVideoJobRepository(exec)
	ctx := context.Background()

	job := &domain.VideoJob{ID: "j1", SceneID: "s1", Provider: "kling", ExternalID: "req-1", Cost: 1.4}
	if err := repo.Start(ctx, job); err != nil {
		t.Fatalf("start: %v", err)
	}
	if job.StartedAt.IsZero() {
		t.Fatal("expected start time stamped")
	}
	if err := repo.Finish(ctx, "j1", domain.JobStatusTimedOut, ""); err != nil {
		t.Fatalf("finish: %v", err)
	}
	finishes := exec.ExecsMatching("update video_jobs")
	if len(finishes) != 1 || finishes[0].Args[1] != "timed-out" {
		t.Fatalf("unexpected finish args: %+v", finishes)
	}
	total, err := repo.SumCost(ctx, "p1")
	if err != nil || total != 2.8 {
		t.Fatalf("expected 2.8 total, got %v, %v", total, err)
	}
}

func TestSceneRepositorySetImage(t *testing.T) {
	exec := &sqltest.Executor{}
	if err := NewSceneRepository(exec).SetImage(context.Background(), "s1", "/media/keyframes/p/s1.png"); err != nil {
		t.Fatalf("set image: %v", err)
	}
	if len(exec.Execs) != 1 || exec.Execs[0].Query != sqlinline.QUpdateSceneImage {
		t.Fatalf("unexpected execs %+v", exec.Execs)
	}
	if exec.Execs[0].Args[1] != "/media/keyframes/p/s1.png" {
		t.Fatalf("unexpected args %v", exec.Execs[0].Args)
	}
}

func TestSceneRepositoryClaim(t *testing.T) {
	claimed := map[string]bool{}
	exec := &sqltest.Executor{
		OnExec: func(query string, args []any) (pgconn.CommandTag, error) {
			if query != sqlinline.QClaimScene {
				t.Fatalf("unexpected statement %q", query)
			}
			id := args[0].(string)
			if claimed[id] {
				return pgconn.NewCommandTag("UPDATE 0"), nil
			}
			claimed[id] = true
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	scenes := NewSceneRepository(exec)
	ctx := context.Background()

	ok, err := scenes.Claim(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	ok, err = scenes.Claim(ctx, "s1")
	if err != nil || ok {
		t.Fatalf("second claim = %v, %v, want false", ok, err)
	}

	exec.OnExec = nil
	exec.ExecErr = errors.New("conn closed")
	if _, err := scenes.Claim(ctx, "s2"); err == nil {
		t.Fatal("expected exec error")
	}
}

func TestSceneRepositoryResetStale(t *testing.T) {
	exec := &sqltest.Executor{
		OnExec: func(query string, args []any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 2"), nil
		},
	}
	cutoff := time.Date(2026, 5, 1, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	n, err := NewSceneRepository(exec).ResetStale(context.Background(), cutoff)
	if err != nil || n != 2 {
		t.Fatalf("reset = %d, %v", n, err)
	}
	call := exec.Execs[0]
	if call.Query != sqlinline.QResetStaleScenes {
		t.Fatalf("unexpected statement %q", call.Query)
	}
	if got := call.Args[0].(time.Time); got.Location() != time.UTC || !got.Equal(cutoff) {
		t.Fatalf("cutoff = %v", got)
	}
	if call.Args[1] != StaleRenderError {
		t.Fatalf("error message = %v", call.Args[1])
	}
}
