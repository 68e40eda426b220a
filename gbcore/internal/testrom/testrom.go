// Package testrom builds small cartridge images for tests.
package testrom

// ROM describes the image to build. Zero values give a 32KB ROM-only cart.
type ROM struct {
	Title    string
	CartType uint8
	ROMCode  uint8
	RAMCode  uint8
	CGBFlag  uint8
	// Program is copied at 0x0100, the entry point.
	Program []byte
	// Patches are copied at their address after Program.
	Patches map[uint16][]byte
	// MarkBanks writes the bank number at offset 0x0000 of every bank >= 1.
	MarkBanks bool
}

// Build returns the image with a valid header checksum.
func Build(r ROM) []byte {
	banks := 2 << r.ROMCode
	data := make([]byte, banks*0x4000)

	if r.MarkBanks {
		for b := 1; b < banks; b++ {
			data[b*0x4000] = byte(b)
			data[b*0x4000+1] = byte(b >> 8)
		}
	}

	copy(data[0x134:0x143], r.Title)
	data[0x143] = r.CGBFlag
	data[0x147] = r.CartType
	data[0x148] = r.ROMCode
	data[0x149] = r.RAMCode

	copy(data[0x100:], r.Program)
	for at, bytes := range r.Patches {
		copy(data[at:], bytes)
	}

	var sum uint8
	for i := 0x134; i <= 0x14C; i++ {
		sum = sum - data[i] - 1
	}
	data[0x14D] = sum
	return data
}

// Program builds a ROM-only image running code from the entry point.
func Program(code ...byte) []byte {
	return Build(ROM{Title: "TEST", Program: code})
}
