package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "module not found")
		if err.Error() != "[NOT_FOUND] module not found" {
			t.Errorf("expected [NOT_FOUND] module not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("tree-sitter returned nil tree")
		err := Wrap(original, CodeParseError, "parse failed")
		expected := "[PARSE_ERROR] parse failed: tree-sitter returned nil tree"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to the original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid rewrite style")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("AddContextToDomainError", func(t *testing.T) {
		err := AddContext(New(CodeNotSupported, "unsupported language"), CtxPath, "a.vue")
		if !IsCode(err, CodeNotSupported) {
			t.Fatalf("expected code to survive AddContext, got %v", err)
		}
		if !strings.Contains(err.Error(), "a.vue") {
			t.Errorf("expected context in message, got %s", err.Error())
		}
	})

	t.Run("AddContextToPlainError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxSpecifier, "./provider")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected plain errors to become CodeInternal, got %v", err)
		}
	})
}

func TestAddContext_CopiesDomainError(t *testing.T) {
	base := New(CodeNotFound, "module not found")
	withPath := AddContext(base, CtxPath, "a.ts")
	withSpec := AddContext(withPath, CtxSpecifier, "./b")

	if base.Error() != "[NOT_FOUND] module not found" {
		t.Fatalf("base error must not change, got %s", base.Error())
	}
	if withPath.Error() != "[NOT_FOUND] module not found path=a.ts" {
		t.Fatalf("unexpected message %s", withPath.Error())
	}
	if withSpec.Error() != "[NOT_FOUND] module not found path=a.ts specifier=./b" {
		t.Fatalf("unexpected message %s", withSpec.Error())
	}
	if AddContext(nil, CtxPath, "a.ts") != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestCodeOfAndContextValue(t *testing.T) {
	inner := AddContext(New(CodeParseError, "bad tree"), CtxPath, "m.ts")
	outer := fmt.Errorf("analyze: %w", inner)

	if got := CodeOf(outer); got != CodeParseError {
		t.Errorf("expected PARSE_ERROR, got %s", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR for plain errors, got %s", got)
	}
	if v, ok := ContextValue(outer, CtxPath); !ok || v != "m.ts" {
		t.Errorf("expected path m.ts, got %v %v", v, ok)
	}
	if _, ok := ContextValue(outer, CtxSpecifier); ok {
		t.Error("expected no specifier context")
	}

	rewrapped := AddContext(outer, CtxOperation, "rewrite")
	if !IsCode(rewrapped, CodeParseError) {
		t.Errorf("expected code from chain, got %v", rewrapped)
	}
	if v, _ := ContextValue(rewrapped, CtxPath); v != "m.ts" {
		t.Errorf("expected inner path to stay reachable, got %v", v)
	}
}
