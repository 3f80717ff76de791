package compiler

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// This asm file implements a human-readable/writable form of a compiled
// module. This is mostly to support testing of the VM without going through
// the resolution and compilation phases. A disassembler is also implemented.
//
// The assembly format looks like this (indentation and spacing is arbitrary,
// but order of sections is important):
//
// 	program:                             # required
// 		names:                             # optional, list of Names (predeclared)
// 			print
// 		constants:                         # optional, list of Constants
// 			string "abc"
// 			int    1234
// 			float  1.34
// 		exports:                           # optional, list of Exports
// 			name 0 1                         # function index and top-level slot
//
// 	function: NAME <stack> <params> <locals>
// 	                                     # required at least once for top-level
// 		locals:                            # optional, list of Locals
// 			x 0                              # name and slot
// 		cells:                             # optional, slots captured by nested functions
// 			0
// 		captures:                          # optional, list of Captures
// 			local 0 x                        # captures slot 0 of the enclosing frame
// 			upvalue 1 y                      # captures upvalue 1 of the enclosing closure
// 		code:                              # required, list of instructions
// 			NOP
// 			JMP 3                            # jump argument refers to index in code section (will be translated to pc address)
// 			CALL 2
//
// The first function is the top-level, the following ones are the module's
// functions in index order.

var sections = map[string]bool{
	"program:":   true,
	"names:":     true,
	"constants:": true,
	"exports:":   true,
	"function:":  true,
	"locals:":    true,
	"cells:":     true,
	"captures:":  true,
	"code:":      true,
}

// Asm loads a compiled module from its assembler textual format.
func Asm(b []byte) (*Module, error) {
	asm := asm{s: bufio.NewScanner(bytes.NewReader(b))}

	// must start with the program: section
	fields := asm.next()
	asm.program(fields)

	// optional sections
	fields = asm.next()
	fields = asm.names(fields)
	fields = asm.constants(fields)
	fields = asm.exports(fields)

	// functions
	for asm.err == nil && len(fields) > 0 && fields[0] == "function:" {
		fields = asm.function(fields)
	}

	if asm.err == nil {
		if len(fields) > 0 {
			asm.err = fmt.Errorf("unexpected section: %s", fields[0])
		} else {
			asm.err = asm.m.validate()
		}
	}
	if asm.err != nil {
		return nil, asm.err
	}
	return asm.m, nil
}

type asm struct {
	s       *bufio.Scanner
	rawLine string // current raw line (not split in fields)
	m       *Module
	fn      *Funcode // current function
	err     error
}

func (a *asm) function(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "function:") {
		return fields
	}

	if len(fields) != 5 {
		a.err = fmt.Errorf("invalid function: want 5 fields: 'function: NAME <stack> <params> <locals>', got %d fields (%s)", len(fields), strings.Join(fields, " "))
		return fields
	}
	fn := Funcode{
		Name:      fields[1],
		MaxStack:  int(a.uint(fields[2])),
		NumParams: int(a.uint(fields[3])),
		NumLocals: int(a.uint(fields[4])),
	}
	fn.Pos.Filename = a.m.Filename
	a.fn = &fn

	// function sub-sections
	fields = a.next()
	fields = a.locals(fields)
	fields = a.cells(fields)
	fields = a.captures(fields)
	fields = a.code(fields)

	a.fn = nil
	if a.m.Toplevel == nil {
		a.m.Toplevel = &fn
	} else {
		a.m.Functions = append(a.m.Functions, &fn)
	}
	return fields
}

// parses code section and translates jump indices to addresses.
func (a *asm) code(fields []string) []string {
	if a.err != nil {
		return fields
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		msg := "expected code section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return fields
	}

	var insns []insn
	var indexToAddr []int
	var addr int
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		op, ok := reverseLookupOpcode[strings.ToLower(fields[0])]
		if !ok {
			a.err = fmt.Errorf("invalid opcode: %s", fields[0])
			return fields
		}

		var arg uint32
		if op >= OpcodeArgMin {
			// an argument is required
			if len(fields) != 2 {
				a.err = fmt.Errorf("expected an argument for opcode %s, got %d fields", fields[0], len(fields))
				return fields
			}
			arg = a.uint32(fields[1])
		} else if len(fields) != 1 {
			a.err = fmt.Errorf("expected no argument for opcode %s, got %d fields", fields[0], len(fields))
			return fields
		}
		insns = append(insns, insn{op: op, arg: arg})
		indexToAddr = append(indexToAddr, addr)
		addr += encodedSize(op, arg)
	}

	// encode the instructions with the translated addresses
	for i, insn := range insns {
		op, arg := insn.op, insn.arg
		if isJump(op) {
			if arg >= uint32(len(indexToAddr)) {
				a.err = fmt.Errorf("invalid jump index %d: instruction %s at index %d", arg, op, i)
				return fields
			}
			arg = uint32(indexToAddr[arg])
		}
		a.fn.Code = encodeInsn(a.fn.Code, op, arg)
	}
	return fields
}

type insn struct {
	op  Opcode
	arg uint32
}

func (a *asm) captures(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "captures:") {
		return fields
	}

	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if len(fields) < 2 || len(fields) > 3 {
			a.err = fmt.Errorf("invalid capture: expected kind, index and optional name, got %d fields", len(fields))
			return fields
		}

		var c Capture
		switch fields[0] {
		case "local":
			c.Kind = CaptureLocal
		case "upvalue":
			c.Kind = CaptureUpvalue
		default:
			a.err = fmt.Errorf("invalid capture kind: %s", fields[0])
			return fields
		}
		c.Index = a.uint32(fields[1])
		if len(fields) == 3 {
			c.Name = fields[2]
		}
		a.fn.Captures = append(a.fn.Captures, c)
	}
	return fields
}

func (a *asm) cells(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "cells:") {
		return fields
	}

	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		slot := int(a.uint(fields[0]))
		if slot >= a.fn.NumLocals {
			a.err = fmt.Errorf("invalid cell: slot %d is not a local of function %s", slot, a.fn.Name)
			return fields
		}
		a.fn.Cells = append(a.fn.Cells, slot)
	}
	return fields
}

func (a *asm) locals(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "locals:") {
		return fields
	}

	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if len(fields) != 2 {
			a.err = fmt.Errorf("invalid local: expected name and slot, got %d fields", len(fields))
			return fields
		}
		a.fn.Locals = append(a.fn.Locals, Binding{Name: fields[0], Slot: int(a.uint(fields[1]))})
	}
	return fields
}

func (a *asm) exports(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "exports:") {
		return fields
	}

	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if len(fields) != 3 {
			a.err = fmt.Errorf("invalid export: expected name, function and slot, got %d fields", len(fields))
			return fields
		}
		a.m.Exports = append(a.m.Exports, Export{
			Name:     fields[0],
			Function: a.uint32(fields[1]),
			Slot:     int(a.uint(fields[2])),
		})
	}
	return fields
}

var rxConstLineString = regexp.MustCompile(`^\s*string\s+(.+)$`)

func (a *asm) constants(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "constants:") {
		return fields
	}

	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		// string constants may have whitespace in the value, need to keep the
		// raw line around and extract the whole quoted value from the raw line.
		strVal := rxConstLineString.FindStringSubmatch(a.rawLine)
		if strVal == nil && len(fields) != 2 {
			a.err = fmt.Errorf("invalid constant: expected type and value, got %d fields", len(fields))
			return fields
		}

		switch fields[0] {
		case "int":
			a.m.Constants = append(a.m.Constants, a.int(fields[1]))
		case "float":
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.err = fmt.Errorf("invalid float: %s: %w", fields[1], err)
				return fields
			}
			a.m.Constants = append(a.m.Constants, f)
		case "string":
			qs, err := strconv.QuotedPrefix(strVal[1])
			if err != nil {
				a.err = fmt.Errorf("invalid string: %q: %w", strVal[1], err)
				return fields
			}
			s, err := strconv.Unquote(qs)
			if err != nil {
				a.err = fmt.Errorf("invalid string: %q: %w", qs, err)
				return fields
			}
			a.m.Constants = append(a.m.Constants, s)
		default:
			a.err = fmt.Errorf("invalid constant type: %s", fields[0])
			return fields
		}
	}
	return fields
}

func (a *asm) names(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "names:") {
		return fields
	}

	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		a.m.Names = append(a.m.Names, fields[0])
	}
	return fields
}

func (a *asm) program(fields []string) {
	if a.err != nil {
		return
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "program:") {
		msg := "expected program section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return
	}

	var m Module
	if len(fields) > 1 {
		m.Filename = fields[1]
	}
	a.m = &m
}

func (a *asm) int(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("invalid integer: %s: %w", s, err)
	}
	return i
}

func (a *asm) uint(s string) uint64 {
	u, err := strconv.ParseUint(s, 10, 31)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("invalid unsigned integer: %s: %w", s, err)
	}
	return u
}

func (a *asm) uint32(s string) uint32 {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("invalid unsigned integer: %s: %w", s, err)
	}
	return uint32(u)
}

// returns the fields for the next non-empty, non-comment-only line, so that
// fields[0] will contain the line identification if it is a section.
func (a *asm) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			// strip comments to make rest of parsing simpler
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = line
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm writes a compiled module to its assembler textual format.
func Dasm(m *Module) ([]byte, error) {
	d := dasm{m: m, buf: new(bytes.Buffer)}

	if d.m.Toplevel == nil {
		return nil, errors.New("missing top-level function")
	}
	d.program()
	d.write("\n")
	d.function(m.Toplevel)
	for _, fn := range m.Functions {
		d.write("\n")
		d.function(fn)
	}

	if d.err != nil {
		return nil, d.err
	}
	return d.buf.Bytes(), nil
}

type dasm struct {
	m   *Module
	buf *bytes.Buffer
	err error
}

func (d *dasm) function(fn *Funcode) {
	if d.err != nil {
		return
	}
	if fn == nil {
		d.err = errors.New("function is not finalized")
		return
	}

	d.writef("function: %s %d %d %d\n", fn.Name, fn.MaxStack, fn.NumParams, fn.NumLocals)

	if len(fn.Locals) > 0 {
		d.write("\tlocals:\n")
		for i, l := range fn.Locals {
			d.writef("\t\t%s %d\t# %03d\n", l.Name, l.Slot, i)
		}
	}
	if len(fn.Cells) > 0 {
		d.write("\tcells:\n")
		for i, c := range fn.Cells {
			d.writef("\t\t%d\t# %03d\n", c, i)
		}
	}
	if len(fn.Captures) > 0 {
		d.write("\tcaptures:\n")
		for i, c := range fn.Captures {
			if c.Name != "" {
				d.writef("\t\t%s %d %s\t# %03d\n", c.Kind, c.Index, c.Name, i)
			} else {
				d.writef("\t\t%s %d\t# %03d\n", c.Kind, c.Index, i)
			}
		}
	}

	// decode all instructions to translate addresses to index
	var insns []insn
	addrToIndex := make([]int, len(fn.Code))
	// initialize to -1 to identify invalid jumps
	for i := range addrToIndex {
		addrToIndex[i] = -1
	}
	var addr int
	for addr < len(fn.Code) {
		op := Opcode(fn.Code[addr])
		if op > OpcodeMax {
			d.err = fmt.Errorf("invalid opcode in function %s code at index %d (%d)", fn.Name, addr, op)
			return
		}
		sz := 1

		var arg uint32
		if op >= OpcodeArgMin {
			v, n := binary.Uvarint(fn.Code[addr+1:])
			if n <= 0 || v > math.MaxUint32 {
				d.err = fmt.Errorf("invalid uvarint argument in function %s code at index %d (%s)", fn.Name, addr, op)
				return
			}
			arg = uint32(v)

			if isJump(op) && n < 4 {
				n = 4
			}
			sz += n
		}

		addrToIndex[addr] = len(insns)
		insns = append(insns, insn{op: op, arg: arg})
		addr += sz
	}

	if len(insns) > 0 {
		d.write("\tcode:\n")
		for i, insn := range insns {
			op, arg := insn.op, insn.arg
			if op >= OpcodeArgMin {
				if isJump(op) {
					if arg >= uint32(len(addrToIndex)) || addrToIndex[arg] == -1 {
						d.err = fmt.Errorf("invalid jump address %d in function %s, instruction %d (%s)", arg, fn.Name, i, op)
						return
					}
					arg = uint32(addrToIndex[arg])
				}
				d.writef("\t\t%s %03d\t# %03d\n", strings.ToUpper(op.String()), arg, i)
			} else {
				d.writef("\t\t%s\t# %03d\n", strings.ToUpper(op.String()), i)
			}
		}
	}
}

func (d *dasm) program() {
	if d.m.Filename != "" {
		d.writef("program: %s\n", d.m.Filename)
	} else {
		d.write("program:\n")
	}

	if len(d.m.Names) > 0 {
		d.write("\tnames:\n")
		for i, n := range d.m.Names {
			d.writef("\t\t%s\t# %03d\n", n, i)
		}
	}
	if len(d.m.Constants) > 0 {
		d.write("\tconstants:\n")
		for i, c := range d.m.Constants {
			switch c := c.(type) {
			case string:
				d.writef("\t\tstring\t%q\t# %03d\n", c, i)
			case int64:
				d.writef("\t\tint\t%d\t# %03d\n", c, i)
			case float64:
				d.writef("\t\tfloat\t%s\t# %03d\n", strconv.FormatFloat(c, 'g', -1, 64), i)
			default:
				d.err = fmt.Errorf("unsupported constant type: %T", c)
				return
			}
		}
	}
	if len(d.m.Exports) > 0 {
		d.write("\texports:\n")
		for i, e := range d.m.Exports {
			d.writef("\t\t%s %d %d\t# %03d\n", e.Name, e.Function, e.Slot, i)
		}
	}
}

func (d *dasm) writef(s string, args ...any) {
	d.write(fmt.Sprintf(s, args...))
}

func (d *dasm) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}
