// Package module decodes and rewrites binary firmware modules.
//
// # Module Layout
//
// A module is a contiguous byte buffer:
//
//	[VECTOR_TABLE(0|0x184|0x200)][PREFIX(24+ext)][PAYLOAD][SUFFIX(suffixSize)][CRC-32(4)]
//
// The prefix carries the flash addresses, flags, version, platform, function
// and two dependency slots. The suffix is anchored at the CRC trailer and is
// decoded backward: the last two bytes before the CRC hold the suffix size.
//
//	[EXTENSIONS][RSVD(2)][UNIQUE_ID(32)][SUFFIX_SIZE(2)][CRC(4)]
//
// The module length is EndAddress - StartAddress + 4.
//
// # Extensions
//
// Prefix and suffix extensions are TLV records:
//
//	[TYPE(2)][LENGTH(2)][PAYLOAD(LENGTH)]
//
// An END record (type 0) terminates a list. Unknown types are kept as
// UnknownExtension and re-encoded unchanged.
//
// # Usage
//
// Parse a module from disk:
//
//	info, err := module.ParseFile("tinker.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("platform %d, %s v%d\n", info.Prefix.PlatformID,
//	    info.Prefix.Function, info.Prefix.ModuleVersion)
//	if !info.CRC.OK {
//	    fmt.Println("crc mismatch")
//	}
//
// Compress a module and patch a prefix field:
//
//	out, err := module.CompressModule(buf)
//	v := uint16(7)
//	err = module.UpdatePrefix(out, module.PrefixFields{ModuleVersion: &v})
//
// Mutating operations copy their input and recompute the unique id and CRC
// in that order. UpdatePrefix and UpdateSuffix patch in place and leave the
// checksums alone; call checksum.UpdateSHA256 and checksum.UpdateCRC32 after.
package module
