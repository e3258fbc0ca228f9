package testkit

import (
	"context"
	"strings"
	"testing"

	lir "github.com/llir/llvm/ir"

	"v4c/internal/backend/llvm"
	"v4c/internal/ir"
)

func TestFixturesLower(t *testing.T) {
	fixtures := []struct {
		name  string
		build func() *ir.Module
	}{
		{"increment", Increment},
		{"branchy", Branchy},
		{"kitchen-sink", KitchenSink},
	}
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			m := fx.build()
			if err := ir.Validate(m); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			sel, err := llvm.NewSelector(llvm.Options{Passes: llvm.DefaultPasses, Source: fx.name})
			if err != nil {
				t.Fatalf("NewSelector: %v", err)
			}
			res, err := sel.Run(context.Background(), m)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if err := CheckLowered(m, res); err != nil {
				t.Fatalf("CheckLowered: %v", err)
			}
		})
	}
}

func TestKitchenSinkCoverage(t *testing.T) {
	m := KitchenSink()
	sel, err := llvm.NewSelector(llvm.Options{})
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	res, err := sel.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{
		"rt_push_with_scope", "rt_pop_scope", "rt_construct_activation_property",
		"rt_set_property", "rt_set_element", "rt_set_activation_property",
		"rt_inplace_add_member", "rt_init_native_function", "rt_foreach_iterator_object",
		"rt_foreach_next_property_name", "rt_call_property", "rt_call_value",
		"rt_se", "rt_typeof_member", "rt_init_null", "rt_return",
	} {
		if res.Stats.RuntimeCalls[name] == 0 {
			t.Errorf("kitchen sink never calls %s", name)
		}
	}
}

func TestCheckLoweredCatchesEntryMismatch(t *testing.T) {
	m := Branchy()
	sel, err := llvm.NewSelector(llvm.Options{})
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	res, err := sel.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res.Entry = nil
	if err := CheckLowered(m, res); err == nil {
		t.Fatalf("expected entry mismatch")
	}
}

func TestCheckLoweredBlockShape(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *lir.Func)
		want   string
	}{
		{"renamed prologue", func(f *lir.Func) { f.Blocks[0].SetName("start") }, "not the prologue"},
		{"extra block", func(f *lir.Func) { f.NewBlock("extra").NewRet(nil) }, "3 target blocks for 1 IR blocks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Increment()
			sel, err := llvm.NewSelector(llvm.Options{})
			if err != nil {
				t.Fatalf("NewSelector: %v", err)
			}
			res, err := sel.Run(context.Background(), m)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if err := CheckLowered(m, res); err != nil {
				t.Fatalf("CheckLowered before mutation: %v", err)
			}
			f := llvm.FindFunc(res.Module, llvm.NativePrefix+"f")
			if f == nil || f.Blocks[0].Name() != "prologue" {
				t.Fatalf("lowered f must open with the prologue block")
			}
			tt.mutate(f)
			err = CheckLowered(m, res)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
