package protocol

import (
	"fmt"
	"strings"
)

// Opcode identifies the purpose of a frame (4-bit wire value)
type Opcode byte

// WebSocket frame opcodes
const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// Valid reports whether the opcode is one of the defined values.
// 0x3-0x7 and 0xB-0xF are reserved.
func (op Opcode) Valid() bool {
	switch op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return true
	}
	return false
}

// IsControl reports whether the opcode is a control opcode (Close, Ping, Pong)
func (op Opcode) IsControl() bool {
	return op&0x8 != 0
}

// String returns a human-readable opcode name
func (op Opcode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("unknown(0x%X)", byte(op))
	}
}

// ParseOpcode converts a name as produced by String back to an Opcode.
// Matching is case-insensitive.
func ParseOpcode(name string) (Opcode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "continuation":
		return OpContinuation, nil
	case "text":
		return OpText, nil
	case "binary":
		return OpBinary, nil
	case "close":
		return OpClose, nil
	case "ping":
		return OpPing, nil
	case "pong":
		return OpPong, nil
	default:
		return 0, fmt.Errorf("unknown opcode %q", name)
	}
}
