package kernel

import (
	"errors"
	"testing"
)

func TestSyscallReturnRegisters(t *testing.T) {
	tests := []struct {
		name string
		ret  SyscallReturn
		want [4]uint32
	}{
		{"success", ReturnSuccess(), [4]uint32{128, 0, 0, 0}},
		{"success_u32", ReturnSuccessU32(42), [4]uint32{129, 42, 0, 0}},
		{"success_u32_u32", ReturnSuccessU32U32(7, 9), [4]uint32{130, 7, 9, 0}},
		{"failure", ReturnFailure(ErrNoSupport), [4]uint32{0, 10, 0, 0}},
		{"failure_u32_u32", ReturnFailureU32U32(ErrInval, 3, 4), [4]uint32{2, 6, 3, 4}},
	}
	for _, tt := range tests {
		if got := tt.ret.Registers(); got != tt.want {
			t.Errorf("%s: Registers() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSyscallReturnAccessors(t *testing.T) {
	if err := ReturnSuccess().Err(); err != nil {
		t.Fatalf("ReturnSuccess().Err() = %v, want nil", err)
	}
	if code := ReturnSuccessU32(1).Code(); code != 0 {
		t.Fatalf("success Code() = %s, want 0", code)
	}

	fail := ReturnFailure(ErrSize)
	if fail.IsSuccess() {
		t.Fatal("failure IsSuccess() = true")
	}
	if !errors.Is(fail.Err(), ErrSize) {
		t.Fatalf("failure Err() = %v, want SIZE", fail.Err())
	}

	if n, ok := ReturnSuccessU32(5).U32(); !ok || n != 5 {
		t.Fatalf("U32() = %d, %v, want 5, true", n, ok)
	}
	if _, ok := ReturnSuccess().U32(); ok {
		t.Fatal("U32() on plain success ok = true")
	}
	if a, b, ok := ReturnFailureU32U32(ErrInval, 10, 20).U32U32(); !ok || a != 10 || b != 20 {
		t.Fatalf("failure U32U32() = %d, %d, %v", a, b, ok)
	}
}

func TestRegisterDriverDuplicate(t *testing.T) {
	k := newTestKernel(t)
	newNoteDriver(t, k)

	err := k.RegisterDriver(testDriverNum, &noteDriver{})
	if CodeOf(err) != ErrAlready {
		t.Fatalf("second RegisterDriver() err = %v, want ALREADY", err)
	}
	if err := k.RegisterDriver(1, nil); err == nil {
		t.Fatal("RegisterDriver(nil) err = nil")
	}
}
