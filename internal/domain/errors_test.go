// internal/domain/errors_test.go
package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/waabox/deploydeck/internal/domain"
)

func TestErrNotConnected_CanBeDetectedWithErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("sending chat message: %w", domain.ErrNotConnected)
	if !errors.Is(wrapped, domain.ErrNotConnected) {
		t.Error("expected errors.Is to detect ErrNotConnected in wrapped error")
	}
}

func TestRepository_Valid(t *testing.T) {
	if (domain.Repository{Owner: "acme"}).Valid() {
		t.Error("expected repository without name to be invalid")
	}
	if !(domain.Repository{Owner: "acme", Name: "widgets"}).Valid() {
		t.Error("expected repository with owner and name to be valid")
	}
}

func TestPipelineStep_Elapsed(t *testing.T) {
	s := domain.PipelineStep{Duration: 1.5}
	if s.Elapsed().Milliseconds() != 1500 {
		t.Errorf("expected 1500ms, got %v", s.Elapsed())
	}
}
