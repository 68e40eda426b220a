// Package state reads and writes save states in the BESS container used by
// SameBoy and other emulators: raw memory dumps followed by a chain of
// tagged blocks and an 8 byte footer pointing at the first block.
//
// Besides the standard NAME, INFO, CORE and MBC blocks a state may carry a
// GBCR block with opaque per component snapshots. Readers that do not know
// it skip it, as the format requires.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const footerMagic uint32 = 0x53534542 // "BESS"

// Sizes checked on load.
const (
	OAMSize     = 0xA0
	HRAMSize    = 0x7F
	PaletteSize = 0x40
)

var (
	// ErrFormat is wrapped by every decoding error.
	ErrFormat = errors.New("invalid BESS state")

	// ErrTitleMismatch is returned when a state was saved with another ROM.
	ErrTitleMismatch = errors.New("state belongs to a different cartridge")
)

// Model is the four character BESS model code.
type Model [4]byte

var (
	ModelDMG = Model{'G', 'D', 'B', ' '}
	ModelCGB = Model{'C', 'C', 'A', ' '}
	ModelSGB = Model{'S', 'N', ' ', ' '}
)

func (m Model) IsDMG() bool    { return m[0] == 'G' }
func (m Model) IsCGB() bool    { return m[0] == 'C' }
func (m Model) String() string { return string(m[:]) }

// ExecutionMode is the CPU run state stored in the CORE block.
type ExecutionMode uint8

const (
	Running ExecutionMode = iota
	Halted
	Stopped
)

// Core is the CORE block: CPU registers, the IO page and the memory dumps.
type Core struct {
	Major, Minor uint16
	Model        Model

	PC, AF, BC, DE, HL, SP uint16

	IME  bool
	IE   uint8
	Mode ExecutionMode

	IO [0x80]byte

	RAM         []byte
	VRAM        []byte
	MBCRAM      []byte
	OAM         []byte
	HRAM        []byte
	BGPalettes  []byte
	OBJPalettes []byte
}

func (c *Core) buffers() []*[]byte {
	return []*[]byte{&c.RAM, &c.VRAM, &c.MBCRAM, &c.OAM, &c.HRAM, &c.BGPalettes, &c.OBJPalettes}
}

// Register is one mapper control write from the MBC block.
type Register struct {
	Address uint16
	Value   uint8
}

// Component is a named opaque snapshot from the GBCR block.
type Component struct {
	Name string
	Data []byte
}

// State is a decoded save state.
type State struct {
	Name     string
	Title    [16]byte
	Checksum [2]byte
	Core     Core
	MBC      []Register

	// Components is empty for states written by other emulators.
	Components []Component
}

// Component returns the snapshot stored under name.
func (s *State) Component(name string) ([]byte, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c.Data, true
		}
	}
	return nil, false
}

// TitleString decodes the INFO title the way the cartridge header does:
// up to the first NUL, ignoring a trailing CGB flag, trimmed.
func (s *State) TitleString() string {
	end := len(s.Title)
	for i, b := range s.Title {
		if b == 0 || (i == len(s.Title)-1 && (b == 0x80 || b == 0xC0)) {
			end = i
			break
		}
	}
	return strings.TrimSpace(string(s.Title[:end]))
}

// Verify checks the CORE block sizes against the model.
func (s *State) Verify() error {
	c := &s.Core
	if len(c.OAM) != OAMSize {
		return fmt.Errorf("%w: OAM size %d", ErrFormat, len(c.OAM))
	}
	if len(c.HRAM) != HRAMSize {
		return fmt.Errorf("%w: HRAM size %d", ErrFormat, len(c.HRAM))
	}
	want := 0
	if c.Model.IsCGB() {
		want = PaletteSize
	}
	if len(c.BGPalettes) != want || len(c.OBJPalettes) != want {
		return fmt.Errorf("%w: palette sizes %d/%d for model %q", ErrFormat, len(c.BGPalettes), len(c.OBJPalettes), c.Model)
	}
	if c.Mode > Stopped {
		return fmt.Errorf("%w: execution mode %d", ErrFormat, c.Mode)
	}
	return nil
}

// String lists the main fields, one per line.
func (s *State) String() string {
	var b strings.Builder
	row := func(label, format string, args ...any) {
		fmt.Fprintf(&b, "%-9s  "+format+"\n", append([]any{label}, args...)...)
	}
	row("Emulator", "%s", s.Name)
	row("Title", "%s", s.TitleString())
	row("Version", "%d.%d", s.Core.Major, s.Core.Minor)
	row("Model", "%s", s.Core.Model)
	row("RAM", "%d", len(s.Core.RAM))
	row("VRAM", "%d", len(s.Core.VRAM))
	row("PC", "0x%04X", s.Core.PC)
	row("SP", "0x%04X", s.Core.SP)
	return b.String()
}

type blockHeader struct {
	Magic [4]byte
	Size  uint32
}

type bufferRef struct {
	Size, Offset uint32
}

// coreBlock is the fixed layout of the CORE block body.
type coreBlock struct {
	Major, Minor           uint16
	Model                  Model
	PC, AF, BC, DE, HL, SP uint16
	IME, IE, Mode, Padding uint8
	IO                     [0x80]byte
	Buffers                [7]bufferRef
}

var (
	magicName       = [4]byte{'N', 'A', 'M', 'E'}
	magicInfo       = [4]byte{'I', 'N', 'F', 'O'}
	magicCore       = [4]byte{'C', 'O', 'R', 'E'}
	magicMBC        = [4]byte{'M', 'B', 'C', ' '}
	magicComponents = [4]byte{'G', 'B', 'C', 'R'}
	magicEnd        = [4]byte{'E', 'N', 'D', ' '}
)

var coreBlockSize = binary.Size(coreBlock{})

// MarshalBinary encodes s as a BESS file. Core.Major and Core.Minor default
// to 1.1 when zero.
func (s *State) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	core := coreBlock{
		Major: s.Core.Major, Minor: s.Core.Minor,
		Model: s.Core.Model,
		PC:    s.Core.PC, AF: s.Core.AF, BC: s.Core.BC, DE: s.Core.DE, HL: s.Core.HL, SP: s.Core.SP,
		IE:   s.Core.IE,
		Mode: uint8(s.Core.Mode),
		IO:   s.Core.IO,
	}
	if core.Major == 0 && core.Minor == 0 {
		core.Major, core.Minor = 1, 1
	}
	if s.Core.IME {
		core.IME = 1
	}

	for i, b := range s.Core.buffers() {
		core.Buffers[i] = bufferRef{Size: uint32(len(*b)), Offset: uint32(buf.Len())}
		buf.Write(*b)
	}
	start := uint32(buf.Len())

	w(blockHeader{magicName, uint32(len(s.Name))})
	buf.WriteString(s.Name)

	w(blockHeader{magicInfo, uint32(len(s.Title) + len(s.Checksum))})
	w(s.Title)
	w(s.Checksum)

	w(blockHeader{magicCore, uint32(coreBlockSize)})
	w(core)

	w(blockHeader{magicMBC, uint32(3 * len(s.MBC))})
	for _, r := range s.MBC {
		w(r)
	}

	if len(s.Components) > 0 {
		var body bytes.Buffer
		for _, c := range s.Components {
			if len(c.Name) > 0xFF {
				return nil, fmt.Errorf("component name %q too long", c.Name)
			}
			body.WriteByte(uint8(len(c.Name)))
			body.WriteString(c.Name)
			_ = binary.Write(&body, binary.LittleEndian, uint32(len(c.Data)))
			body.Write(c.Data)
		}
		w(blockHeader{magicComponents, uint32(body.Len())})
		buf.Write(body.Bytes())
	}

	w(blockHeader{magicEnd, 0})
	w(start)
	w(footerMagic)
	return buf.Bytes(), nil
}

// Decode parses and verifies a BESS file.
func Decode(data []byte) (*State, error) {
	s := &State{}
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return s, nil
}

// UnmarshalBinary parses a BESS file into s. Unknown blocks are skipped.
func (s *State) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: %d bytes is too short", ErrFormat, len(data))
	}
	footer := len(data) - 8
	start := binary.LittleEndian.Uint32(data[footer:])
	if magic := binary.LittleEndian.Uint32(data[footer+4:]); magic != footerMagic {
		return fmt.Errorf("%w: footer magic 0x%08X", ErrFormat, magic)
	}
	if int(start) > footer {
		return fmt.Errorf("%w: first block at %d past the footer", ErrFormat, start)
	}

	*s = State{}
	var seenCore bool
	pos := int(start)
	for {
		if pos+8 > footer {
			return fmt.Errorf("%w: missing END block", ErrFormat)
		}
		var h blockHeader
		copy(h.Magic[:], data[pos:pos+4])
		h.Size = binary.LittleEndian.Uint32(data[pos+4:])
		pos += 8
		if uint64(pos)+uint64(h.Size) > uint64(footer) {
			return fmt.Errorf("%w: block %q overruns the file", ErrFormat, h.Magic[:])
		}
		body := data[pos : pos+int(h.Size)]
		pos += int(h.Size)

		var err error
		switch h.Magic {
		case magicName:
			s.Name = string(body)
		case magicInfo:
			if len(body) < len(s.Title)+len(s.Checksum) {
				err = fmt.Errorf("%w: INFO block size %d", ErrFormat, len(body))
				break
			}
			copy(s.Title[:], body)
			copy(s.Checksum[:], body[len(s.Title):])
		case magicCore:
			err = s.Core.decode(body, data[:footer])
			seenCore = true
		case magicMBC:
			s.MBC = make([]Register, 0, len(body)/3)
			for i := 0; i+3 <= len(body); i += 3 {
				s.MBC = append(s.MBC, Register{binary.LittleEndian.Uint16(body[i:]), body[i+2]})
			}
		case magicComponents:
			s.Components, err = decodeComponents(body)
		case magicEnd:
			if !seenCore {
				return fmt.Errorf("%w: missing CORE block", ErrFormat)
			}
			return s.Verify()
		}
		if err != nil {
			return err
		}
	}
}

func (c *Core) decode(body, file []byte) error {
	if len(body) < coreBlockSize {
		return fmt.Errorf("%w: CORE block size %d", ErrFormat, len(body))
	}
	var b coreBlock
	if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, &b); err != nil {
		return fmt.Errorf("%w: CORE block: %v", ErrFormat, err)
	}

	*c = Core{
		Major: b.Major, Minor: b.Minor,
		Model: b.Model,
		PC:    b.PC, AF: b.AF, BC: b.BC, DE: b.DE, HL: b.HL, SP: b.SP,
		IME:  b.IME != 0,
		IE:   b.IE,
		Mode: ExecutionMode(b.Mode),
		IO:   b.IO,
	}
	for i, dst := range c.buffers() {
		ref := b.Buffers[i]
		end := uint64(ref.Offset) + uint64(ref.Size)
		if end > uint64(len(file)) {
			return fmt.Errorf("%w: buffer %d overruns the file", ErrFormat, i)
		}
		*dst = append([]byte(nil), file[ref.Offset:end]...)
	}
	return nil
}

func decodeComponents(body []byte) ([]Component, error) {
	var out []Component
	for len(body) > 0 {
		n := int(body[0])
		if 1+n+4 > len(body) {
			return nil, fmt.Errorf("%w: truncated component header", ErrFormat)
		}
		name := string(body[1 : 1+n])
		size := binary.LittleEndian.Uint32(body[1+n:])
		body = body[1+n+4:]
		if uint64(size) > uint64(len(body)) {
			return nil, fmt.Errorf("%w: component %q overruns its block", ErrFormat, name)
		}
		out = append(out, Component{Name: name, Data: append([]byte(nil), body[:size]...)})
		body = body[size:]
	}
	return out, nil
}
