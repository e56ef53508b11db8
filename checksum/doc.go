// Package checksum maintains the integrity fields of a binary module.
//
// # Checksum Layout
//
// Every module ends with a fixed integrity trailer:
//
//	[... module bytes ...][SHA-256(32)][SUFFIX_SIZE(2)][CRC-32(4)]
//
// The SHA-256 unique id covers bytes [0, len-38) and the CRC-32 covers bytes
// [0, len-4). Because the CRC window includes the hash, any mutation must
// recompute the hash first and the CRC second:
//
//	eng := checksum.New()
//	if err := eng.UpdateSHA256(buf); err != nil {
//	    return err
//	}
//	if err := eng.UpdateCRC32(buf); err != nil {
//	    return err
//	}
//
// # CRC Configuration
//
// The CRC primitive is process-wide configuration. SetCRC32Func replaces the
// default used by engines created afterwards; an Engine captures the function
// once at construction and never reads the global again, so changing the
// default does not affect computations already in flight.
//
//	checksum.SetCRC32Func(myHardwareCRC)
//	eng := checksum.New()                           // uses myHardwareCRC
//	eng2 := checksum.New(checksum.WithCRC32(other)) // explicit override
package checksum
