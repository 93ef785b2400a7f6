package crux

import (
	"context"
	"errors"
	"testing"
)

func TestNew_RequiresEngine(t *testing.T) {
	_, err := New()
	if !errors.Is(err, ErrNoEngine) {
		t.Errorf("New() error = %v, want ErrNoEngine", err)
	}
}

func TestNew_WithOracleFactory(t *testing.T) {
	analyzer, err := New(WithOracleFactory(mapFactory(nil, nil, 0)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := analyzer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestAnalyzer_CloseTwice(t *testing.T) {
	analyzer, err := New(WithOracleFactory(mapFactory(nil, nil, 0)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := analyzer.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := analyzer.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() error = %v, want ErrClosed", err)
	}
}

func TestAnalyzer_AnalyzeAfterClose(t *testing.T) {
	analyzer, err := New(WithOracleFactory(mapFactory(nil, nil, 0)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := analyzer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	_, err = analyzer.AnalyzePGN(context.Background(), scholarsMate)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("AnalyzePGN() after Close error = %v, want ErrClosed", err)
	}
}

func TestScoreConstructors(t *testing.T) {
	if got := Cp(-125).String(); got != "-1.25" {
		t.Errorf("Cp(-125).String() = %q, want -1.25", got)
	}
	if got := MateIn(3).String(); got != "#3" {
		t.Errorf("MateIn(3).String() = %q, want #3", got)
	}
	if got := Draw().String(); got != "=" {
		t.Errorf("Draw().String() = %q, want =", got)
	}
	if (Score{}).Valid() {
		t.Error("zero Score reported valid")
	}
}
