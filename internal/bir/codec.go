package bir

import (
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for this repository's own BIR encoding. These are not
// GTIRB's actual .proto schema (out of scope per spec §1); they exist so
// Encode/Decode round-trip using the same wire primitives hyperpb's parser
// is built on (protowire.Consume*/Append*) instead of a stdlib gob/json
// encoding, matching the teacher's own approach to Protobuf wire bytes.
const (
	fModUUID          = protowire.Number(1)
	fModName          = protowire.Number(2)
	fModISA           = protowire.Number(3)
	fModSymbol        = protowire.Number(4)
	fModByteInterval  = protowire.Number(5)
	fModBlock         = protowire.Number(6)
	fModCFGEdge       = protowire.Number(7)
	fModFunction      = protowire.Number(8)
	fModType          = protowire.Number(9)
	fModOffsetAuxTbl  = protowire.Number(10)

	fSymUUID     = protowire.Number(1)
	fSymName     = protowire.Number(2)
	fSymReferent = protowire.Number(3)

	fBlkUUID    = protowire.Number(1)
	fBlkKind    = protowire.Number(2)
	fBlkAddress = protowire.Number(3)
	fBlkSize    = protowire.Number(4)
	fBlkText    = protowire.Number(5)

	fBIUUID    = protowire.Number(1)
	fBIAddress = protowire.Number(2)
	fBISize    = protowire.Number(3)
	fBISymExpr = protowire.Number(4)

	fSEDisp   = protowire.Number(1)
	fSESymbol = protowire.Number(2)

	fEdgeSource = protowire.Number(1)
	fEdgeTarget = protowire.Number(2)
	fEdgeType   = protowire.Number(3)
	fEdgeCond   = protowire.Number(4)
	fEdgeDirect = protowire.Number(5)

	fFnUUID      = protowire.Number(1)
	fFnSymbol    = protowire.Number(2)
	fFnBlock     = protowire.Number(3)
	fFnSource    = protowire.Number(4)
	fFnPrototype = protowire.Number(5)

	fSrcName = protowire.Number(1)
	fSrcText = protowire.Number(2)

	fTypeID    = protowire.Number(1)
	fTypeCtype = protowire.Number(2)

	fAuxName  = protowire.Number(1)
	fAuxEntry = protowire.Number(2)

	fEntBlock = protowire.Number(1)
	fEntDisp  = protowire.Number(2)
	fEntText  = protowire.Number(3)
)

// Encode serializes a Module to this repository's BIR wire format.
func Encode(m *Module) []byte {
	var b []byte
	b = protowire.AppendTag(b, fModUUID, protowire.BytesType)
	b = protowire.AppendBytes(b, m.UUID[:])
	b = protowire.AppendTag(b, fModName, protowire.BytesType)
	b = protowire.AppendString(b, m.Name)
	b = protowire.AppendTag(b, fModISA, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ISA))

	for _, s := range m.Symbols {
		b = protowire.AppendTag(b, fModSymbol, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSymbol(s))
	}
	for _, bi := range m.ByteIntervals {
		b = protowire.AppendTag(b, fModByteInterval, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeByteInterval(bi))
	}
	for _, blk := range m.Blocks {
		b = protowire.AppendTag(b, fModBlock, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeBlock(blk))
	}
	for _, e := range m.CFG {
		b = protowire.AppendTag(b, fModCFGEdge, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeEdge(e))
	}
	for _, fn := range m.Functions {
		b = protowire.AppendTag(b, fModFunction, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeFunction(fn))
	}
	for _, t := range m.TypeTable {
		b = protowire.AppendTag(b, fModType, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeType(t))
	}
	for name, entries := range m.OffsetAuxTables {
		b = protowire.AppendTag(b, fModOffsetAuxTbl, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeOffsetAuxTable(name, entries))
	}
	return b
}

func encodeSymbol(s *Symbol) []byte {
	var b []byte
	b = protowire.AppendTag(b, fSymUUID, protowire.BytesType)
	b = protowire.AppendBytes(b, s.UUID[:])
	b = protowire.AppendTag(b, fSymName, protowire.BytesType)
	b = protowire.AppendString(b, s.Name)
	if s.Referent != nil {
		b = protowire.AppendTag(b, fSymReferent, protowire.BytesType)
		b = protowire.AppendBytes(b, s.Referent[:])
	}
	return b
}

func encodeBlock(blk *Block) []byte {
	var b []byte
	b = protowire.AppendTag(b, fBlkUUID, protowire.BytesType)
	b = protowire.AppendBytes(b, blk.UUID[:])
	b = protowire.AppendTag(b, fBlkKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(blk.Kind))
	b = protowire.AppendTag(b, fBlkAddress, protowire.VarintType)
	b = protowire.AppendVarint(b, blk.Address)
	b = protowire.AppendTag(b, fBlkSize, protowire.VarintType)
	b = protowire.AppendVarint(b, blk.Size)
	if blk.Text != "" {
		b = protowire.AppendTag(b, fBlkText, protowire.BytesType)
		b = protowire.AppendString(b, blk.Text)
	}
	return b
}

func encodeByteInterval(bi *ByteInterval) []byte {
	var b []byte
	b = protowire.AppendTag(b, fBIUUID, protowire.BytesType)
	b = protowire.AppendBytes(b, bi.UUID[:])
	b = protowire.AppendTag(b, fBIAddress, protowire.VarintType)
	b = protowire.AppendVarint(b, bi.Address)
	b = protowire.AppendTag(b, fBISize, protowire.VarintType)
	b = protowire.AppendVarint(b, bi.Size)
	for disp, se := range bi.SymbolicExpressions {
		var e []byte
		e = protowire.AppendTag(e, fSEDisp, protowire.VarintType)
		e = protowire.AppendVarint(e, disp)
		for _, sym := range se.Symbols {
			e = protowire.AppendTag(e, fSESymbol, protowire.BytesType)
			e = protowire.AppendBytes(e, sym[:])
		}
		b = protowire.AppendTag(b, fBISymExpr, protowire.BytesType)
		b = protowire.AppendBytes(b, e)
	}
	return b
}

func encodeEdge(e CFGEdge) []byte {
	var b []byte
	b = protowire.AppendTag(b, fEdgeSource, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Source[:])
	b = protowire.AppendTag(b, fEdgeTarget, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Target[:])
	b = protowire.AppendTag(b, fEdgeType, protowire.BytesType)
	b = protowire.AppendString(b, e.Label.Type)
	b = protowire.AppendTag(b, fEdgeCond, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(e.Label.Conditional))
	b = protowire.AppendTag(b, fEdgeDirect, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(e.Label.Direct))
	return b
}

func encodeFunction(fn *Function) []byte {
	var b []byte
	b = protowire.AppendTag(b, fFnUUID, protowire.BytesType)
	b = protowire.AppendBytes(b, fn.UUID[:])
	b = protowire.AppendTag(b, fFnSymbol, protowire.BytesType)
	b = protowire.AppendBytes(b, fn.Symbol[:])
	for _, blk := range fn.Blocks {
		b = protowire.AppendTag(b, fFnBlock, protowire.BytesType)
		b = protowire.AppendBytes(b, blk[:])
	}
	for name, text := range fn.Sources {
		var s []byte
		s = protowire.AppendTag(s, fSrcName, protowire.BytesType)
		s = protowire.AppendString(s, name)
		s = protowire.AppendTag(s, fSrcText, protowire.BytesType)
		s = protowire.AppendString(s, text)
		b = protowire.AppendTag(b, fFnSource, protowire.BytesType)
		b = protowire.AppendBytes(b, s)
	}
	b = protowire.AppendTag(b, fFnPrototype, protowire.VarintType)
	b = protowire.AppendVarint(b, fn.Prototype)
	return b
}

func encodeType(t *Type) []byte {
	var b []byte
	b = protowire.AppendTag(b, fTypeID, protowire.VarintType)
	b = protowire.AppendVarint(b, t.ID)
	b = protowire.AppendTag(b, fTypeCtype, protowire.BytesType)
	b = protowire.AppendString(b, t.Ctype)
	return b
}

func encodeOffsetAuxTable(name string, entries map[OffsetKey]string) []byte {
	var b []byte
	b = protowire.AppendTag(b, fAuxName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	for k, text := range entries {
		var e []byte
		e = protowire.AppendTag(e, fEntBlock, protowire.BytesType)
		e = protowire.AppendBytes(e, k.Block[:])
		e = protowire.AppendTag(e, fEntDisp, protowire.VarintType)
		e = protowire.AppendVarint(e, protowire.EncodeZigZag(k.Disp))
		e = protowire.AppendTag(e, fEntText, protowire.BytesType)
		e = protowire.AppendString(e, text)
		b = protowire.AppendTag(b, fAuxEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, e)
	}
	return b
}

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// Decode parses bytes produced by Encode back into a Module.
func Decode(data []byte) (*Module, error) {
	m := NewModule()
	if err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fModUUID:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			m.UUID = id
		case fModName:
			m.Name = string(v)
		case fModISA:
			m.ISA = ISA(raw)
		case fModSymbol:
			s, err := decodeSymbol(v)
			if err != nil {
				return err
			}
			m.Symbols = append(m.Symbols, s)
		case fModByteInterval:
			bi, err := decodeByteInterval(v)
			if err != nil {
				return err
			}
			m.ByteIntervals = append(m.ByteIntervals, bi)
		case fModBlock:
			blk, err := decodeBlock(v)
			if err != nil {
				return err
			}
			m.Blocks[blk.UUID] = blk
		case fModCFGEdge:
			e, err := decodeEdge(v)
			if err != nil {
				return err
			}
			m.CFG = append(m.CFG, e)
		case fModFunction:
			fn, err := decodeFunction(v)
			if err != nil {
				return err
			}
			m.Functions[fn.UUID] = fn
		case fModType:
			t, err := decodeType(v)
			if err != nil {
				return err
			}
			m.TypeTable[t.ID] = t
		case fModOffsetAuxTbl:
			name, entries, err := decodeOffsetAuxTable(v)
			if err != nil {
				return err
			}
			m.OffsetAuxTables[name] = entries
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bir: decode: %w", err)
	}
	m.Reindex()
	return m, nil
}

func decodeSymbol(data []byte) (*Symbol, error) {
	s := &Symbol{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fSymUUID:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			s.UUID = id
		case fSymName:
			s.Name = string(v)
		case fSymReferent:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			s.Referent = &id
		}
		return nil
	})
	return s, err
}

func decodeBlock(data []byte) (*Block, error) {
	blk := &Block{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fBlkUUID:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			blk.UUID = id
		case fBlkKind:
			blk.Kind = BlockKind(raw)
		case fBlkAddress:
			blk.Address = raw
		case fBlkSize:
			blk.Size = raw
		case fBlkText:
			blk.Text = string(v)
		}
		return nil
	})
	return blk, err
}

func decodeByteInterval(data []byte) (*ByteInterval, error) {
	bi := &ByteInterval{SymbolicExpressions: map[uint64]SymbolicExpression{}}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fBIUUID:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			bi.UUID = id
		case fBIAddress:
			bi.Address = raw
		case fBISize:
			bi.Size = raw
		case fBISymExpr:
			disp, se, err := decodeSymExpr(v)
			if err != nil {
				return err
			}
			bi.SymbolicExpressions[disp] = se
		}
		return nil
	})
	return bi, err
}

func decodeSymExpr(data []byte) (uint64, SymbolicExpression, error) {
	var disp uint64
	var se SymbolicExpression
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fSEDisp:
			disp = raw
		case fSESymbol:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			se.Symbols = append(se.Symbols, id)
		}
		return nil
	})
	return disp, se, err
}

func decodeEdge(data []byte) (CFGEdge, error) {
	var e CFGEdge
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fEdgeSource:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			e.Source = id
		case fEdgeTarget:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			e.Target = id
		case fEdgeType:
			e.Label.Type = string(v)
		case fEdgeCond:
			e.Label.Conditional = raw != 0
		case fEdgeDirect:
			e.Label.Direct = raw != 0
		}
		return nil
	})
	return e, err
}

func decodeFunction(data []byte) (*Function, error) {
	fn := &Function{Sources: map[string]string{}}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fFnUUID:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			fn.UUID = id
		case fFnSymbol:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			fn.Symbol = id
		case fFnBlock:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			fn.Blocks = append(fn.Blocks, id)
		case fFnSource:
			name, text, err := decodeSource(v)
			if err != nil {
				return err
			}
			fn.Sources[name] = text
		case fFnPrototype:
			fn.Prototype = raw
		}
		return nil
	})
	return fn, err
}

func decodeSource(data []byte) (string, string, error) {
	var name, text string
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fSrcName:
			name = string(v)
		case fSrcText:
			text = string(v)
		}
		return nil
	})
	return name, text, err
}

func decodeType(data []byte) (*Type, error) {
	t := &Type{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fTypeID:
			t.ID = raw
		case fTypeCtype:
			t.Ctype = string(v)
		}
		return nil
	})
	return t, err
}

func decodeOffsetAuxTable(data []byte) (string, map[OffsetKey]string, error) {
	var name string
	entries := map[OffsetKey]string{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fAuxName:
			name = string(v)
		case fAuxEntry:
			k, text, err := decodeOffsetEntry(v)
			if err != nil {
				return err
			}
			entries[k] = text
		}
		return nil
	})
	return name, entries, err
}

func decodeOffsetEntry(data []byte) (OffsetKey, string, error) {
	var k OffsetKey
	var text string
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error {
		switch num {
		case fEntBlock:
			id, err := uuidFromBytes(v)
			if err != nil {
				return err
			}
			k.Block = id
		case fEntDisp:
			k.Disp = protowire.DecodeZigZag(raw)
		case fEntText:
			text = string(v)
		}
		return nil
	})
	return k, text, err
}

func uuidFromBytes(v []byte) (uuid.UUID, error) {
	return uuid.FromBytes(v)
}

// forEachField walks a wire-encoded message, handing each field to f. For
// varint/fixed32/fixed64 fields, raw carries the decoded numeric value; for
// bytes/string fields, v carries the payload and raw is 0. This is the same
// tag-then-value walk hyperpb's startParse loop performs by hand (see
// parse.go), generalized here since this codec does not need hyperpb's
// speed-critical inlining.
func forEachField(data []byte, f func(num protowire.Number, typ protowire.Type, v []byte, raw uint64) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := f(num, typ, nil, val); err != nil {
				return err
			}
			data = data[n:]
		case protowire.Fixed64Type:
			val, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := f(num, typ, nil, val); err != nil {
				return err
			}
			data = data[n:]
		case protowire.Fixed32Type:
			val, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := f(num, typ, nil, uint64(val)); err != nil {
				return err
			}
			data = data[n:]
		case protowire.BytesType:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := f(num, typ, val, 0); err != nil {
				return err
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}
