// Package dma implements the OAM DMA unit.
package dma

import (
	"log/slog"

	"github.com/valerio/gbcore/gbcore/addr"
)

// TransferLength is the number of bytes copied into OAM by one transfer.
const TransferLength = addr.OAMSize

// Bus is the memory side of the DMA unit.
type Bus interface {
	ReadForDMA(address uint16) byte
	WriteOAMForDMA(offset uint8, value byte)
	SetDMAActive(active bool)
}

// DMA copies 160 bytes from source<<8 into OAM, one byte per machine cycle.
// While a transfer runs the CPU bus is locked.
type DMA struct {
	bus Bus

	disabled    bool
	active      bool
	source      uint16
	transferred int
	register    byte

	logger *slog.Logger
}

// New returns an idle DMA unit.
func New(bus Bus, logger *slog.Logger) *DMA {
	if logger == nil {
		logger = slog.Default()
	}
	return &DMA{bus: bus, logger: logger}
}

// Read implements memory.Device for the DMA register.
func (d *DMA) Read(address uint16) byte {
	return d.register
}

// Write implements memory.Device: writing the DMA register starts a
// transfer, replacing any transfer in progress.
func (d *DMA) Write(address uint16, value byte) {
	d.register = value
	if d.disabled {
		return
	}
	d.Start(value)
}

// SetEnabled turns the unit on or off. Turning it off aborts a running
// transfer and releases the bus; while off, register writes start nothing.
func (d *DMA) SetEnabled(on bool) {
	d.disabled = !on
	if d.disabled && d.active {
		d.active = false
		d.bus.SetDMAActive(false)
	}
}

// Start begins a transfer from page.
func (d *DMA) Start(page byte) {
	d.source = uint16(page) << 8
	d.transferred = 0
	d.active = true
	d.bus.SetDMAActive(true)
	d.logger.Debug("oam dma start", "source", d.source)
}

// Tick advances the transfer by one machine cycle.
func (d *DMA) Tick() {
	if !d.active {
		return
	}

	offset := uint16(d.transferred)
	d.bus.WriteOAMForDMA(uint8(offset), d.bus.ReadForDMA(d.source+offset))
	d.transferred++

	if d.transferred == TransferLength {
		d.active = false
		d.bus.SetDMAActive(false)
	}
}

// Active reports whether a transfer is in progress.
func (d *DMA) Active() bool { return d.active }

// Transferred returns how many bytes of the current transfer were copied.
func (d *DMA) Transferred() int { return d.transferred }
