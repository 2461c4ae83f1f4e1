package hwio

import "testing"

type test1 struct {
	Reg1   Reg8 `hwio:"offset=0x111,reset=0x23,rwmask=0x1,wcb"`
	Reg2   Reg8 `hwio:"offset=0x444,bank=1,rcb"`
	Mem1   Mem  `hwio:"offset=0x200,size=0x10,vsize=0x40,readonly"`
	called bool
}

func (t *test1) WriteREG1(old, val uint8) {
	t.called = true
}

func (t *test1) ReadREG2(val uint8) uint8 {
	return val | 1
}

func TestReflect(t *testing.T) {
	ts := &test1{}

	if err := InitRegs(ts); err != nil {
		t.Fatal(err)
	}

	if ts.Reg1.Name != "Reg1" || ts.Reg2.Name != "Reg2" {
		t.Error("invalid names:", ts.Reg1, ts.Reg2)
	}

	if got := ts.Reg2.Read8(0, false); got != 1 {
		t.Error("invalid read8:", got)
	}

	if val := ts.Reg1.Read8(0, false); val != 0x23 {
		t.Error("invalid read8", val)
	}

	ts.Reg1.Write8(0, 0)
	if ts.Reg1.Value != 0x22 {
		t.Error("invalid read after rwmask", ts.Reg1.Value)
	}
	if !ts.called {
		t.Error("callback not called")
	}

	if len(ts.Mem1.Data) != 0x10 || ts.Mem1.VSize != 0x40 || ts.Mem1.Flags&MemFlagReadOnly == 0 {
		t.Errorf("invalid mem init: len=%d vsize=%d flags=%d", len(ts.Mem1.Data), ts.Mem1.VSize, ts.Mem1.Flags)
	}
}

func TestParseBank(t *testing.T) {
	ts := &test1{}
	info, err := bankGetRegs(ts, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(info) != 2 {
		t.Fatal("wrong number of regs in bank:", len(info))
	}
	if info[0].offset != 0x111 {
		t.Errorf("invalid reg offset: %x", info[0].offset)
	}
	if _, ok := info[1].regPtr.(*Mem); !ok {
		t.Errorf("second reg is %T, want *Mem", info[1].regPtr)
	}

	info, err = bankGetRegs(ts, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(info) != 1 || info[0].offset != 0x444 {
		t.Fatalf("invalid bank 1: %+v", info)
	}
}

type badcb struct {
	Reg Reg8 `hwio:"offset=0,rcb"`
}

func TestReflectMissingCallback(t *testing.T) {
	if err := InitRegs(&badcb{}); err == nil {
		t.Fatal("InitRegs should fail when a callback is missing")
	}
}
