package backend

import (
	"bytes"
	"crypto/sha256"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"
)

// ObjectFile is the assembled ELF64 relocatable object (ET_REL), ready
// to be written to disk and linked like any other .o file.
type ObjectFile struct {
	Bytes   []byte
	BuildID string // hex-encoded sha256 digest of .text, for reproducible-build verification
}

// Section indices in the fixed layout below.
const (
	secNull = iota
	secText
	secRodata
	secSymtab
	secStrtab
	secRelaText
	secRelaRodata
	secShstrtab
	numSections
)

// AssembleObject packages a Module's encoded functions, interned
// strings, and vtables into a single x86-64 ELF64 relocatable object.
// Symbols are sorted before layout so the output is byte-identical
// across runs. The ELF structure is built from debug/elf's typed
// layout structs and constants.
func AssembleObject(mod *Module) (*ObjectFile, error) {
	sort.Slice(mod.Functions, func(i, j int) bool { return mod.Functions[i].Symbol < mod.Functions[j].Symbol })
	sort.Slice(mod.Strings, func(i, j int) bool { return mod.Strings[i].Symbol < mod.Strings[j].Symbol })

	var text bytes.Buffer
	var rodata bytes.Buffer
	funcOffsets := map[string]int64{}
	type pendingReloc struct {
		offset int64
		sym    string
		addend int64
		typ    elf.R_X86_64
	}
	var textRelocs []pendingReloc
	var rodataRelocs []pendingReloc
	stringOffsets := map[string]int64{}

	for _, sc := range mod.Strings {
		stringOffsets[sc.Symbol] = int64(rodata.Len())
		rodata.WriteString(sc.Value)
		rodata.WriteByte(0)
	}

	for _, f := range mod.Functions {
		enc, err := Encode(f)
		if err != nil {
			return nil, err
		}
		base := int64(text.Len())
		funcOffsets[f.Symbol] = base
		for _, r := range enc.Relocs {
			textRelocs = append(textRelocs, pendingReloc{offset: base + r.Offset, sym: r.Symbol, addend: r.Addend, typ: elf.R_X86_64_PC32})
		}
		text.Write(enc.Code)
	}

	// vtable slots are zero in the file and patched by .rela.rodata:
	// each 8-byte slot takes the absolute address of its mangled method
	// symbol at link time.
	vtableOffsets := map[string]int64{}
	for _, vt := range mod.VTables {
		for rodata.Len()%8 != 0 {
			rodata.WriteByte(0)
		}
		base := int64(rodata.Len())
		vtableOffsets[vt.Symbol()] = base
		for i, slotSym := range vt.Slots {
			rodataRelocs = append(rodataRelocs, pendingReloc{
				offset: base + int64(i)*SlotSize, sym: slotSym, addend: 0, typ: elf.R_X86_64_64,
			})
			var buf [SlotSize]byte
			rodata.Write(buf[:])
		}
	}

	// --- symbol table -----------------------------------------------
	type symEntry struct {
		name    string
		value   uint64
		section uint16 // secText/secRodata, or SHN_UNDEF for externals
		size    uint64
		global  bool
	}
	var syms []symEntry
	for _, f := range mod.Functions {
		syms = append(syms, symEntry{name: f.Symbol, value: uint64(funcOffsets[f.Symbol]), section: secText, global: true})
	}
	for _, sc := range mod.Strings {
		syms = append(syms, symEntry{name: sc.Symbol, value: uint64(stringOffsets[sc.Symbol]), section: secRodata, global: false})
	}
	for _, vt := range mod.VTables {
		syms = append(syms, symEntry{name: vt.Symbol(), value: uint64(vtableOffsets[vt.Symbol()]), section: secRodata, global: true, size: uint64(len(vt.Slots)) * SlotSize})
	}
	knownSyms := map[string]bool{}
	for _, s := range syms {
		knownSyms[s.name] = true
	}
	externalSet := map[string]bool{}
	for _, r := range textRelocs {
		if !knownSyms[r.sym] {
			externalSet[r.sym] = true
		}
	}
	for _, r := range rodataRelocs {
		if !knownSyms[r.sym] {
			externalSet[r.sym] = true
		}
	}
	var externals []string
	for name := range externalSet {
		externals = append(externals, name)
	}
	sort.Strings(externals)
	for _, name := range externals {
		syms = append(syms, symEntry{name: name, section: uint16(elf.SHN_UNDEF), global: true})
	}

	// ELF requires every STB_LOCAL symbol to precede the first global;
	// sh_info of .symtab is the index of that first global.
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].global != syms[j].global {
			return !syms[i].global
		}
		if syms[i].section != syms[j].section {
			return syms[i].section < syms[j].section
		}
		return syms[i].name < syms[j].name
	})
	localCount := 1 // the null symbol
	for _, s := range syms {
		if !s.global {
			localCount++
		}
	}
	symIndex := map[string]int{}
	for i, s := range syms {
		symIndex[s.name] = i + 1 // entry 0 is the null symbol
	}

	// --- string tables -----------------------------------------------
	strtab := []byte{0}
	strtabOffset := map[string]uint32{}
	for _, s := range syms {
		strtabOffset[s.name] = uint32(len(strtab))
		strtab = append(strtab, []byte(s.name)...)
		strtab = append(strtab, 0)
	}

	shstrtab := []byte{0}
	shName := func(name string) uint32 {
		off := uint32(len(shstrtab))
		shstrtab = append(shstrtab, []byte(name)...)
		shstrtab = append(shstrtab, 0)
		return off
	}
	textNameOff := shName(".text")
	rodataNameOff := shName(".rodata")
	symtabNameOff := shName(".symtab")
	strtabNameOff := shName(".strtab")
	relaTextNameOff := shName(".rela.text")
	relaRodataNameOff := shName(".rela.rodata")
	shstrtabNameOff := shName(".shstrtab")

	// --- .symtab ------------------------------------------------------
	var symtabBuf bytes.Buffer
	binary.Write(&symtabBuf, binary.LittleEndian, elf.Sym64{}) // null symbol
	for _, s := range syms {
		bind := byte(elf.STB_LOCAL)
		if s.global {
			bind = byte(elf.STB_GLOBAL)
		}
		typ := byte(elf.STT_FUNC)
		if s.section == secRodata {
			typ = byte(elf.STT_OBJECT)
		}
		if s.section == uint16(elf.SHN_UNDEF) {
			typ = byte(elf.STT_NOTYPE)
		}
		binary.Write(&symtabBuf, binary.LittleEndian, elf.Sym64{
			Name:  strtabOffset[s.name],
			Info:  bind<<4 | typ,
			Shndx: s.section,
			Value: s.value,
			Size:  s.size,
		})
	}

	relaBytes := func(relocs []pendingReloc) ([]byte, error) {
		var buf bytes.Buffer
		for _, r := range relocs {
			idx, ok := symIndex[r.sym]
			if !ok {
				return nil, fmt.Errorf("relocation against unknown symbol %q", r.sym)
			}
			binary.Write(&buf, binary.LittleEndian, elf.Rela64{
				Off:    uint64(r.offset),
				Info:   elf.R_INFO(uint32(idx), uint32(r.typ)),
				Addend: r.addend,
			})
		}
		return buf.Bytes(), nil
	}
	relaText, err := relaBytes(textRelocs)
	if err != nil {
		return nil, err
	}
	relaRodata, err := relaBytes(rodataRelocs)
	if err != nil {
		return nil, err
	}

	// --- section layout & headers --------------------------------------
	const ehsize = 64
	const shentsize = 64
	headerEnd := int64(ehsize)

	textOff := align8(headerEnd)
	rodataOff := align8(textOff + int64(text.Len()))
	symtabOff := align8(rodataOff + int64(rodata.Len()))
	strtabOff := align8(symtabOff + int64(symtabBuf.Len()))
	relaTextOff := align8(strtabOff + int64(len(strtab)))
	relaRodataOff := align8(relaTextOff + int64(len(relaText)))
	shstrtabOff := align8(relaRodataOff + int64(len(relaRodata)))
	shoff := align8(shstrtabOff + int64(len(shstrtab)))

	var out bytes.Buffer
	hdr := elf.Header64{
		Ident:     [elf.EI_NIDENT]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT), byte(elf.ELFOSABI_NONE)},
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(shoff),
		Ehsize:    ehsize,
		Shentsize: shentsize,
		Shnum:     uint16(numSections),
		Shstrndx:  secShstrtab,
	}
	binary.Write(&out, binary.LittleEndian, hdr)
	writePad(&out, textOff)
	out.Write(text.Bytes())
	writePad(&out, rodataOff)
	out.Write(rodata.Bytes())
	writePad(&out, symtabOff)
	out.Write(symtabBuf.Bytes())
	writePad(&out, strtabOff)
	out.Write(strtab)
	writePad(&out, relaTextOff)
	out.Write(relaText)
	writePad(&out, relaRodataOff)
	out.Write(relaRodata)
	writePad(&out, shstrtabOff)
	out.Write(shstrtab)
	writePad(&out, shoff)

	sh := func(nameOff uint32, typ elf.SectionType, flags elf.SectionFlag, off, size int64, link, info, entsize, addralign uint32) elf.Section64 {
		return elf.Section64{
			Name: nameOff, Type: uint32(typ), Flags: uint64(flags),
			Off: uint64(off), Size: uint64(size), Link: link, Info: info,
			Addralign: uint64(addralign), Entsize: uint64(entsize),
		}
	}
	binary.Write(&out, binary.LittleEndian, elf.Section64{}) // NULL
	binary.Write(&out, binary.LittleEndian, sh(textNameOff, elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR, textOff, int64(text.Len()), 0, 0, 0, 16))
	binary.Write(&out, binary.LittleEndian, sh(rodataNameOff, elf.SHT_PROGBITS, elf.SHF_ALLOC, rodataOff, int64(rodata.Len()), 0, 0, 0, 8))
	binary.Write(&out, binary.LittleEndian, sh(symtabNameOff, elf.SHT_SYMTAB, 0, symtabOff, int64(symtabBuf.Len()), secStrtab, uint32(localCount), 24, 8))
	binary.Write(&out, binary.LittleEndian, sh(strtabNameOff, elf.SHT_STRTAB, 0, strtabOff, int64(len(strtab)), 0, 0, 0, 1))
	binary.Write(&out, binary.LittleEndian, sh(relaTextNameOff, elf.SHT_RELA, 0, relaTextOff, int64(len(relaText)), secSymtab, secText, 24, 8))
	binary.Write(&out, binary.LittleEndian, sh(relaRodataNameOff, elf.SHT_RELA, 0, relaRodataOff, int64(len(relaRodata)), secSymtab, secRodata, 24, 8))
	binary.Write(&out, binary.LittleEndian, sh(shstrtabNameOff, elf.SHT_STRTAB, 0, shstrtabOff, int64(len(shstrtab)), 0, 0, 0, 1))

	digest := sha256.Sum256(text.Bytes())
	return &ObjectFile{Bytes: out.Bytes(), BuildID: fmt.Sprintf("%x", digest)}, nil
}

func align8(off int64) int64 {
	if rem := off % 8; rem != 0 {
		return off + (8 - rem)
	}
	return off
}

func writePad(buf *bytes.Buffer, target int64) {
	for int64(buf.Len()) < target {
		buf.WriteByte(0)
	}
}
