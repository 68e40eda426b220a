package memory

import "github.com/valerio/gbcore/gbcore/addr"

// OAM is shared by the CPU, the PPU and the DMA unit. Access is arbitrated by
// phase: the PPU owns it during OAM scan and pixel transfer, the DMA unit owns
// it while a transfer is running, the CPU may touch it otherwise.

func (m *MMU) oamLocked() bool {
	return m.dmaActive || (m.oamBusy != nil && m.oamBusy())
}

// WriteOAMIfPermitted stores a CPU write to OAM offset, unless the PPU or the
// DMA unit currently own OAM. It reports whether the write happened.
func (m *MMU) WriteOAMIfPermitted(offset uint8, value byte) bool {
	if int(offset) >= addr.OAMSize || m.oamLocked() {
		return false
	}
	m.oam[offset] = value
	return true
}

// ReadOAMForScan returns the four attribute bytes of sprite index (0-39).
// It is the PPU side of the discipline and is never blocked.
func (m *MMU) ReadOAMForScan(index int) [4]byte {
	base := index * 4
	return [4]byte(m.oam[base : base+4])
}

// WriteOAMForDMA stores one transferred byte. Only the DMA unit calls it.
func (m *MMU) WriteOAMForDMA(offset uint8, value byte) {
	if int(offset) < addr.OAMSize {
		m.oam[offset] = value
	}
}

// OAM returns a copy of the whole attribute memory, for diagnostics.
func (m *MMU) OAM() [addr.OAMSize]byte {
	return m.oam
}

// ReadVRAM reads video memory from the given bank for the PPU.
func (m *MMU) ReadVRAM(bank uint8, address uint16) byte {
	return m.vram[bank&0x01][(address-addr.VRAMStart)&(vramBankSize-1)]
}
