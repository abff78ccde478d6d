// Package wasmedge implements the edge-function runtime: a safe loader and
// interpreter for pre-validated WebAssembly modules, just enough of the
// WASM spec to locate and run a module's exported _start function.
//
// It deliberately implements only the numeric subset a minimal no_std
// WASI-style module emits (i32.const, i32.add, end; there is no call), inside a
// bounds-checked 64 KiB linear memory and under an instruction-count fuel
// budget so a malicious or buggy module cannot loop forever or read/write
// outside its sandbox. This is adequate for small computed-response edge
// functions, not a general WASM host.
//
// Grounded on original_source/selenia_core/src/wasm.rs.
package wasmedge

import (
	"errors"
	"os"
)

var (
	wasmMagic   = [4]byte{0x00, 0x61, 0x73, 0x6d}
	wasmVersion = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// Error values mirror the original's WasmError enum.
var (
	ErrInvalidModule = errors.New("wasmedge: invalid module header")
	ErrNoStart       = errors.New("wasmedge: module has no _start export")
	ErrFuelExhausted = errors.New("wasmedge: instruction fuel exhausted")
	ErrTrap          = errors.New("wasmedge: trap")
)

// memorySize is the fixed linear memory size every module instance gets.
const memorySize = 64 * 1024

// DefaultFuel bounds the number of interpreted instructions per
// invocation, preventing an edge function from looping forever.
const DefaultFuel = 100000

// Module is a parsed, not-yet-running WASM binary: just its raw code and
// the byte offset of the _start function's body within it.
type Module struct {
	code        []byte
	startOffset int
}

// Load reads and parses the WASM module at path, locating its _start
// export the same way the original's section walk does: scan the export
// section for a function export named "_start", then scan the code
// section to find that function index's body offset.
func Load(path string) (*Module, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(buf)
}

// Parse validates buf's WASM header and locates its _start function body,
// without executing anything.
func Parse(buf []byte) (*Module, error) {
	if len(buf) < 8 || [4]byte(buf[0:4]) != wasmMagic || [4]byte(buf[4:8]) != wasmVersion {
		return nil, ErrInvalidModule
	}

	startIndex, err := findStartExport(buf)
	if err != nil {
		return nil, err
	}
	offset, err := findFunctionBody(buf, startIndex)
	if err != nil {
		return nil, err
	}
	return &Module{code: buf, startOffset: offset}, nil
}

const (
	sectionExport = 7
	sectionCode   = 10
)

// findStartExport walks the export section looking for a function export
// (external kind 0x00) named "_start", returning its function index.
func findStartExport(buf []byte) (uint32, error) {
	idx := 8
	for idx < len(buf) {
		id := buf[idx]
		idx++
		size, n, err := readVarU32(buf[idx:])
		if err != nil {
			return 0, err
		}
		idx += n
		end := idx + int(size)
		if end > len(buf) {
			return 0, ErrInvalidModule
		}
		if id == sectionExport {
			count, m, err := readVarU32(buf[idx:end])
			if err != nil {
				return 0, err
			}
			pos := idx + m
			for i := uint32(0); i < count; i++ {
				name, c, err := readName(buf[pos:end])
				if err != nil {
					return 0, err
				}
				pos += c
				if pos >= end {
					return 0, ErrInvalidModule
				}
				kind := buf[pos]
				pos++
				funcIdx, c2, err := readVarU32(buf[pos:end])
				if err != nil {
					return 0, err
				}
				pos += c2
				if name == "_start" && kind == 0x00 {
					return funcIdx, nil
				}
			}
		}
		idx = end
	}
	return 0, ErrNoStart
}

// findFunctionBody walks the code section, assuming (as the original does)
// a single code section whose bodies are in function-index order, and
// returns the byte offset of startIndex's body.
func findFunctionBody(buf []byte, startIndex uint32) (int, error) {
	idx := 8
	for idx < len(buf) {
		id := buf[idx]
		idx++
		size, n, err := readVarU32(buf[idx:])
		if err != nil {
			return 0, err
		}
		idx += n
		end := idx + int(size)
		if end > len(buf) {
			return 0, ErrInvalidModule
		}
		if id == sectionCode {
			count, m, err := readVarU32(buf[idx:end])
			if err != nil {
				return 0, err
			}
			pos := idx + m
			for i := uint32(0); i < count; i++ {
				bodySize, b, err := readVarU32(buf[pos:end])
				if err != nil {
					return 0, err
				}
				pos += b
				if i == startIndex {
					return skipLocals(buf, pos)
				}
				pos += int(bodySize)
			}
			break
		}
		idx = end
	}
	return 0, ErrNoStart
}

// skipLocals advances past a function body's local-declarations vector
// (a count of (count, valtype) entries) to the first real instruction.
// Even a body with zero locals carries a one-byte declaration count, which
// the naive offset in the original's section walk leaves unskipped.
func skipLocals(buf []byte, pos int) (int, error) {
	count, n, err := readVarU32(buf[pos:])
	if err != nil {
		return 0, err
	}
	pos += n
	for i := uint32(0); i < count; i++ {
		_, n, err := readVarU32(buf[pos:])
		if err != nil {
			return 0, err
		}
		pos += n + 1 // varuint32 run length + one valtype byte
	}
	return pos, nil
}

func readVarU32(buf []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, 0, ErrInvalidModule
		}
	}
	return 0, 0, ErrInvalidModule
}

func readName(buf []byte) (string, int, error) {
	length, n, err := readVarU32(buf)
	if err != nil {
		return "", 0, err
	}
	start, end := n, n+int(length)
	if end > len(buf) {
		return "", 0, ErrInvalidModule
	}
	return string(buf[start:end]), end, nil
}
