package wasmedge

import (
	"os"
	"testing"
)

// buildAddModule hand-assembles a minimal WASM binary exporting a _start
// function (index 0) whose body computes a+b via i32.const/i32.add/end.
func buildAddModule(a, b uint32) []byte {
	var body []byte
	body = append(body, opI32Const)
	body = append(body, encodeVarU32(a)...)
	body = append(body, opI32Const)
	body = append(body, encodeVarU32(b)...)
	body = append(body, opI32Add)
	body = append(body, opEnd)

	// code section: one function body, no locals.
	funcBody := append([]byte{0x00}, body...) // local decl count = 0
	codeSection := []byte{}
	codeSection = append(codeSection, encodeVarU32(1)...) // function count
	codeSection = append(codeSection, encodeVarU32(uint32(len(funcBody)))...)
	codeSection = append(codeSection, funcBody...)

	// export section: one export, name "_start", kind func (0x00), index 0.
	exportSection := []byte{}
	exportSection = append(exportSection, encodeVarU32(1)...) // export count
	exportSection = append(exportSection, encodeVarU32(6)...)
	exportSection = append(exportSection, []byte("_start")...)
	exportSection = append(exportSection, 0x00)
	exportSection = append(exportSection, encodeVarU32(0)...)

	var buf []byte
	buf = append(buf, wasmMagic[:]...)
	buf = append(buf, wasmVersion[:]...)
	buf = append(buf, sectionExport)
	buf = append(buf, encodeVarU32(uint32(len(exportSection)))...)
	buf = append(buf, exportSection...)
	buf = append(buf, sectionCode)
	buf = append(buf, encodeVarU32(uint32(len(codeSection)))...)
	buf = append(buf, codeSection...)
	return buf
}

func encodeVarU32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func TestParseAndRunComputesSum(t *testing.T) {
	buf := buildAddModule(2, 3)
	mod, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	result, err := NewInstance(mod).Run(DefaultFuel)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result != 5 {
		t.Fatalf("Run returned %d, want 5", result)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	if _, err := Parse([]byte("not a wasm module")); err != ErrInvalidModule {
		t.Fatalf("Parse error = %v, want ErrInvalidModule", err)
	}
}

func TestParseRejectsMissingStartExport(t *testing.T) {
	buf := buildAddModule(1, 1)
	// Corrupt the export name so "_start" is never found.
	for i := range buf {
		if buf[i] == '_' {
			buf[i] = 'x'
		}
	}
	if _, err := Parse(buf); err != ErrNoStart {
		t.Fatalf("Parse error = %v, want ErrNoStart", err)
	}
}

func TestRunExhaustsFuel(t *testing.T) {
	buf := buildAddModule(1, 1)
	mod, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := NewInstance(mod).Run(1); err != ErrFuelExhausted {
		t.Fatalf("Run error = %v, want ErrFuelExhausted", err)
	}
}

func TestRegistryLoadDirAndInvoke(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/greet.wasm"
	if err := os.WriteFile(path, buildAddModule(10, 32), 0o644); err != nil {
		t.Fatalf("writing test module: %v", err)
	}

	reg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	result, ok, err := reg.Invoke("greet", DefaultFuel)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !ok {
		t.Fatal("Invoke reported the module as not found")
	}
	if result != 42 {
		t.Fatalf("Invoke result = %d, want 42", result)
	}

	if _, ok, _ := reg.Invoke("missing", DefaultFuel); ok {
		t.Fatal("Invoke should report an unregistered name as not found")
	}
}
