package trap

import (
	"fmt"

	"golang.org/x/arch/arm/armasm"
)

// DecodeARM disassembles the four bytes at an ARM undefined-instruction
// or prefetch-abort site for a panic or SIGILL diagnostic message.
// print_trapframe in the retrieved source only ever dumped raw register
// values; this adds the one piece of context a raw trap frame can't
// give: what instruction actually faulted.
func DecodeARM(code []byte) string {
	if len(code) < 4 {
		return "<truncated instruction>"
	}
	inst, err := armasm.Decode(code[:4], armasm.ModeARM)
	if err != nil {
		return fmt.Sprintf("<undecodable: %v>", err)
	}
	return inst.String()
}
