package memory

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
)

const (
	entryPointAddress           = 0x100
	logoAddress                 = 0x104
	titleAddress                = 0x134
	titleEnd                    = 0x143
	cgbFlagAddress              = 0x143
	newLicenseeAddress          = 0x144
	sgbFlagAddress              = 0x146
	cartridgeTypeAddress        = 0x147
	romSizeAddress              = 0x148
	ramSizeAddress              = 0x149
	destinationAddress          = 0x14A
	oldLicenseeAddress          = 0x14B
	versionNumberAddress        = 0x14C
	headerChecksumAddress       = 0x14D
	globalChecksumAddress       = 0x14E
	headerSize                  = 0x150
	romBankSize                 = 0x4000
	ramBankSize                 = 0x2000
	mbc2RAMSize                 = 0x200
	newLicenseeMarker           = 0x33
	cgbFlagSupported      uint8 = 0x80
	cgbFlagOnly           uint8 = 0xC0
	sgbFlagSupported      uint8 = 0x03
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header is the decoded cartridge header found at 0x0100-0x014F.
type Header struct {
	Title          string
	CGBFlag        uint8
	SGBFlag        uint8
	NewLicensee    string
	OldLicensee    uint8
	CartType       uint8
	ROMSizeCode    uint8
	RAMSizeCode    uint8
	Destination    uint8
	Version        uint8
	HeaderChecksum uint8
	GlobalChecksum uint16

	// decoded values
	Kind       MapperKind
	ROMSize    int
	ROMBanks   int
	RAMSize    int
	HasBattery bool
	HasRTC     bool
	HasRumble  bool
	ChecksumOK bool
	LogoOK     bool
}

// ParseHeader decodes the header of a ROM image. It fails with a *LoadError when
// the image is too small or inconsistent with the declared ROM size, and with an
// *UnsupportedMapperError when the cartridge type has no mapper implementation.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerSize {
		return nil, &LoadError{Reason: fmt.Sprintf("image is %d bytes, smaller than the %d byte header", len(rom), headerSize)}
	}

	h := &Header{
		Title:          cleanTitle(rom[titleAddress:titleEnd]),
		CGBFlag:        rom[cgbFlagAddress],
		SGBFlag:        rom[sgbFlagAddress],
		OldLicensee:    rom[oldLicenseeAddress],
		CartType:       rom[cartridgeTypeAddress],
		ROMSizeCode:    rom[romSizeAddress],
		RAMSizeCode:    rom[ramSizeAddress],
		Destination:    rom[destinationAddress],
		Version:        rom[versionNumberAddress],
		HeaderChecksum: rom[headerChecksumAddress],
		GlobalChecksum: binary.BigEndian.Uint16(rom[globalChecksumAddress : globalChecksumAddress+2]),
		ChecksumOK:     headerChecksum(rom) == rom[headerChecksumAddress],
		LogoOK:         [48]byte(rom[logoAddress:logoAddress+48]) == nintendoLogo,
	}
	if h.OldLicensee == newLicenseeMarker {
		h.NewLicensee = string(rom[newLicenseeAddress : newLicenseeAddress+2])
	}

	var ok bool
	h.ROMSize, h.ROMBanks, ok = decodeROMSize(h.ROMSizeCode)
	if !ok {
		return nil, &LoadError{Reason: fmt.Sprintf("unknown ROM size code 0x%02X", h.ROMSizeCode)}
	}
	if len(rom) < h.ROMSize {
		return nil, &LoadError{Reason: fmt.Sprintf("header declares %d bytes of ROM, image has %d", h.ROMSize, len(rom))}
	}
	h.RAMSize, ok = decodeRAMSize(h.RAMSizeCode)
	if !ok {
		return nil, &LoadError{Reason: fmt.Sprintf("unknown RAM size code 0x%02X", h.RAMSizeCode)}
	}

	if err := h.decodeCartType(); err != nil {
		return nil, err
	}

	return h, nil
}

// SupportsCGB reports whether the cartridge has CGB enhancements.
func (h *Header) SupportsCGB() bool { return h.CGBFlag&cgbFlagSupported != 0 }

// CGBOnly reports whether the cartridge refuses to run on a DMG.
func (h *Header) CGBOnly() bool { return h.CGBFlag == cgbFlagOnly }

// SupportsSGB reports whether the cartridge has SGB functions.
func (h *Header) SupportsSGB() bool { return h.SGBFlag == sgbFlagSupported }

// CartTypeName is the human readable name of the cartridge type byte.
func (h *Header) CartTypeName() string { return cartTypeName(h.CartType) }

func (h *Header) String() string {
	return fmt.Sprintf("%q %s ROM=%dKB RAM=%dKB", h.Title, h.CartTypeName(), h.ROMSize/1024, h.RAMSize/1024)
}

func (h *Header) decodeCartType() error {
	switch h.CartType {
	case 0x00:
		h.Kind = KindNoMBC
	case 0x08:
		h.Kind = KindNoMBC
	case 0x09:
		h.Kind, h.HasBattery = KindNoMBC, true
	case 0x01, 0x02:
		h.Kind = KindMBC1
	case 0x03:
		h.Kind, h.HasBattery = KindMBC1, true
	case 0x05:
		h.Kind = KindMBC2
	case 0x06:
		h.Kind, h.HasBattery = KindMBC2, true
	case 0x0F, 0x10:
		h.Kind, h.HasBattery, h.HasRTC = KindMBC3, true, true
	case 0x11, 0x12:
		h.Kind = KindMBC3
	case 0x13:
		h.Kind, h.HasBattery = KindMBC3, true
	case 0x19, 0x1A:
		h.Kind = KindMBC5
	case 0x1B:
		h.Kind, h.HasBattery = KindMBC5, true
	case 0x1C, 0x1D:
		h.Kind, h.HasRumble = KindMBC5, true
	case 0x1E:
		h.Kind, h.HasBattery, h.HasRumble = KindMBC5, true, true
	default:
		return &UnsupportedMapperError{CartType: h.CartType}
	}

	// MBC2 carries its own 512x4 bit RAM regardless of the RAM size byte.
	if h.Kind == KindMBC2 {
		h.RAMSize = mbc2RAMSize
	}
	return nil
}

// headerChecksum computes the checksum over 0x0134-0x014C as done by the boot ROM.
func headerChecksum(rom []byte) uint8 {
	var sum uint8
	for i := titleAddress; i <= versionNumberAddress; i++ {
		sum = sum - rom[i] - 1
	}
	return sum
}

func decodeROMSize(code uint8) (size, banks int, ok bool) {
	switch code {
	case 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08:
		banks = 2 << code
		return banks * romBankSize, banks, true
	case 0x52:
		return 72 * romBankSize, 72, true
	case 0x53:
		return 80 * romBankSize, 80, true
	case 0x54:
		return 96 * romBankSize, 96, true
	}
	return 0, 0, false
}

func decodeRAMSize(code uint8) (int, bool) {
	switch code {
	case 0x00:
		return 0, true
	case 0x01:
		// unofficial 2KB size, rounded up to a full bank
		return ramBankSize, true
	case 0x02:
		return 8 * 1024, true
	case 0x03:
		return 32 * 1024, true
	case 0x04:
		return 128 * 1024, true
	case 0x05:
		return 64 * 1024, true
	}
	return 0, false
}

func cartTypeName(code uint8) string {
	switch code {
	case 0x00:
		return "ROM ONLY"
	case 0x01:
		return "MBC1"
	case 0x02:
		return "MBC1+RAM"
	case 0x03:
		return "MBC1+RAM+BATTERY"
	case 0x05:
		return "MBC2"
	case 0x06:
		return "MBC2+BATTERY"
	case 0x08:
		return "ROM+RAM"
	case 0x09:
		return "ROM+RAM+BATTERY"
	case 0x0B, 0x0C, 0x0D:
		return "MMM01"
	case 0x0F:
		return "MBC3+TIMER+BATTERY"
	case 0x10:
		return "MBC3+TIMER+RAM+BATTERY"
	case 0x11:
		return "MBC3"
	case 0x12:
		return "MBC3+RAM"
	case 0x13:
		return "MBC3+RAM+BATTERY"
	case 0x19:
		return "MBC5"
	case 0x1A:
		return "MBC5+RAM"
	case 0x1B:
		return "MBC5+RAM+BATTERY"
	case 0x1C:
		return "MBC5+RUMBLE"
	case 0x1D:
		return "MBC5+RUMBLE+RAM"
	case 0x1E:
		return "MBC5+RUMBLE+RAM+BATTERY"
	case 0x20:
		return "MBC6"
	case 0x22:
		return "MBC7+SENSOR+RUMBLE+RAM+BATTERY"
	case 0xFC:
		return "POCKET CAMERA"
	case 0xFD:
		return "BANDAI TAMA5"
	case 0xFE:
		return "HuC3"
	case 0xFF:
		return "HuC1+RAM+BATTERY"
	}
	return "UNKNOWN"
}

// cleanTitle turns the raw title bytes into a printable string: the title ends
// at the first NUL, non printable bytes become '?'.
func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		if b == 0 {
			break
		}
		r := rune(b)
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}
