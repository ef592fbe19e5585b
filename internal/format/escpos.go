package format

// ESC/POS control sequences understood by the thermal printers this agent
// drives. Same init/feed/cut framing the printers already accept.
var (
	escInit     = []byte{0x1B, 0x40}             // ESC @
	boldOn      = []byte{0x1B, 0x45, 0x01}       // ESC E 1
	boldOff     = []byte{0x1B, 0x45, 0x00}       // ESC E 0
	doubleOn    = []byte{0x1D, 0x21, 0x11}       // GS ! - double width+height
	doubleOff   = []byte{0x1D, 0x21, 0x00}       // GS ! - normal
	alignCenter = []byte{0x1B, 0x61, 0x01}       // ESC a 1
	alignLeft   = []byte{0x1B, 0x61, 0x00}       // ESC a 0
	partialCut  = []byte{0x1D, 0x56, 0x41, 0x00} // GS V A 0
)

// feedLines emits ESC d n.
func feedLines(n byte) []byte {
	return []byte{0x1B, 0x64, n}
}
