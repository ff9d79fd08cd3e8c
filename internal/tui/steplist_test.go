package tui_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/store"
	"github.com/waabox/deploydeck/internal/tui"
)

func TestStepListModel_EmptyShowsMessage(t *testing.T) {
	view := tui.NewStepListModel(store.NewSteps(nil)).View()
	if !strings.Contains(view, "No steps") {
		t.Errorf("expected empty message, got:\n%s", view)
	}
}

func TestStepListModel_TruncatesMultibyteNamesOnRuneBoundaries(t *testing.T) {
	steps := store.NewSteps([]domain.PipelineStep{
		{ID: "init", Name: "ビルドとデプロイメントのステップ", Status: domain.StatusRunning},
		{ID: "deploy", Name: "Déploiement de l'environnement", Status: domain.StatusPending},
	})
	view := tui.NewStepListModel(steps).View()

	if !utf8.ValidString(view) {
		t.Fatalf("expected valid UTF-8, got %q", view)
	}
	if !strings.Contains(view, "ビルドとデプ") || !strings.Contains(view, "Déploiement") {
		t.Errorf("expected name prefixes kept, got:\n%s", view)
	}
	if strings.Count(view, "…") != 2 {
		t.Errorf("expected both long names truncated, got:\n%s", view)
	}
}

func TestStepListModel_ShortNamesUntouched(t *testing.T) {
	steps := store.NewSteps([]domain.PipelineStep{{ID: "build", Name: "Build", Status: domain.StatusCompleted}})
	view := tui.NewStepListModel(steps).View()
	if !strings.Contains(view, "Build") || strings.Contains(view, "…") {
		t.Errorf("expected short name unchanged, got:\n%s", view)
	}
}

func TestStepListModel_OutputViewShowsElapsed(t *testing.T) {
	steps := store.NewSteps([]domain.PipelineStep{{ID: "build", Name: "Build", Status: domain.StatusCompleted, Output: "ok", Duration: 75.25}})
	view := tui.NewStepListModel(steps).OutputView("")
	if !strings.Contains(view, "1m15.3s") {
		t.Errorf("expected elapsed duration, got:\n%s", view)
	}
}
