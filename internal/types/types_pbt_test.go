package types

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPrincipalHexRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parse is the inverse of Hex", prop.ForAll(
		func(raw [20]byte) bool {
			p := Principal(raw)
			reparsed, err := ParsePrincipal(p.Hex())
			return err == nil && reparsed == p
		},
		gen.SliceOfN(20, gen.UInt8()).Map(func(bs []uint8) [20]byte {
			var out [20]byte
			copy(out[:], bs)
			return out
		}),
	))

	properties.TestingRun(t)
}

func TestParsePrincipalRejectsWrongLengths(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hex strings of the wrong length never parse", prop.ForAll(
		func(n uint8) bool {
			length := int(n % 60)
			if length == 40 {
				return true
			}
			s := "0x"
			for i := 0; i < length; i++ {
				s += fmt.Sprintf("%x", i%16)
			}
			_, err := ParsePrincipal(s)
			return err != nil
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
