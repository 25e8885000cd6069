package command

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteInvokesOnChangedWhenNotSilent(t *testing.T) {
	var changed []string
	s := New(func(name string, payload any) { changed = append(changed, name) })
	s.RegisterHandler("create", func(ctx context.Context, payload any) error { return nil })

	if err := s.Execute(context.Background(), "create", nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(changed) != 1 || changed[0] != "create" {
		t.Fatalf("expected onChanged fired once for create, got %v", changed)
	}
}

func TestExecuteSilently_NoChangedEvent(t *testing.T) {
	var changed []string
	s := New(func(name string, payload any) { changed = append(changed, name) })
	s.RegisterHandler("create", func(ctx context.Context, payload any) error { return nil })

	err := s.ExecuteSilently(func() error {
		return s.Execute(context.Background(), "create", nil)
	})
	if err != nil {
		t.Fatalf("ExecuteSilently: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("expected no onChanged events while silent, got %v", changed)
	}
}

func TestExecuteSilently_RestoresOnError(t *testing.T) {
	s := New(nil)
	boom := errors.New("boom")

	err := s.ExecuteSilently(func() error { return boom })
	if err != boom {
		t.Fatalf("expected boom error, got %v", err)
	}
	if s.IsSilent() {
		t.Fatalf("expected silent mode restored after error")
	}
}

func TestExecuteSilently_RestoresOnPanic(t *testing.T) {
	s := New(nil)

	func() {
		defer func() { _ = recover() }()
		_ = s.ExecuteSilently(func() error {
			panic("boom")
		})
	}()

	if s.IsSilent() {
		t.Fatalf("expected silent mode restored after panic")
	}
}

func TestNestedSilent(t *testing.T) {
	s := New(nil)

	err := s.ExecuteSilently(func() error {
		if !s.IsSilent() {
			t.Fatalf("expected silent inside outer scope")
		}
		return s.ExecuteSilently(func() error {
			if !s.IsSilent() {
				t.Fatalf("expected silent inside nested scope")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested ExecuteSilently: %v", err)
	}
	if s.IsSilent() {
		t.Fatalf("expected silent mode cleared after outermost scope returns")
	}
}

func TestExecuteBatchSilently_StopsAtFirstError(t *testing.T) {
	s := New(nil)
	var ran []int
	boom := errors.New("boom")

	err := s.ExecuteBatchSilently(
		func() error { ran = append(ran, 1); return nil },
		func() error { ran = append(ran, 2); return boom },
		func() error { ran = append(ran, 3); return nil },
	)
	if err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("expected batch to stop after second fn, ran=%v", ran)
	}
	if s.IsSilent() {
		t.Fatalf("expected silent mode restored after batch error")
	}
}

func TestSetSilentModeTogglesAndReturnsPrevious(t *testing.T) {
	s := New(nil)

	prev := s.SetSilentMode(true)
	if prev {
		t.Fatalf("expected previous value false, got true")
	}
	if !s.IsSilent() {
		t.Fatalf("expected silent mode on")
	}

	prev = s.SetSilentMode(false)
	if !prev {
		t.Fatalf("expected previous value true, got false")
	}
	if s.IsSilent() {
		t.Fatalf("expected silent mode off")
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	s := New(nil)
	if err := s.Execute(context.Background(), "nope", nil); err == nil {
		t.Fatalf("expected error for unregistered command")
	}
}
