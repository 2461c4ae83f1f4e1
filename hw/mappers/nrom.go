package mappers

import "nesppu/hw"

var NROM = MapperDesc{
	Name: "NROM",
	Load: loadNROM,
}

type nrom struct {
	*base
}

func loadNROM(b *base) (hw.Cartridge, error) {
	nrom := &nrom{base: b}
	b.init(nil)

	// NROM-128 is mirrored at $C000.
	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage16KB(1, -1)

	b.setNTMirroring(b.rom.Mirroring())
	b.selectCHRPage8KB(0)
	return nrom, nil
}
