package protocol

import "github.com/spacetimedb/sdk-go/bsatn"

// EncodeClientMessage serializes msg into its tagged wire form (tag byte
// followed by the variant's payload). The caller is responsible for
// prefixing the compression envelope byte via Envelope.
func EncodeClientMessage(msg ClientMessage) []byte {
	switch m := msg.(type) {
	case Subscribe:
		buf := []byte{TagSubscribe}
		buf = append(buf, bsatn.EncodeU32(m.RequestID)...)
		buf = append(buf, bsatn.EncodeU32(m.QuerySetID)...)
		buf = append(buf, encodeStringArray(m.Queries)...)
		return buf

	case Unsubscribe:
		buf := []byte{TagUnsubscribe}
		buf = append(buf, bsatn.EncodeU32(m.RequestID)...)
		buf = append(buf, bsatn.EncodeU32(m.QuerySetID)...)
		buf = append(buf, bsatn.EncodeU8(m.Flags)...)
		return buf

	case OneOffQuery:
		buf := []byte{TagOneOffQuery}
		buf = append(buf, bsatn.EncodeU32(m.RequestID)...)
		buf = append(buf, bsatn.EncodeString(m.Query)...)
		return buf

	case CallReducer:
		buf := []byte{TagCallReducer}
		buf = append(buf, bsatn.EncodeU32(m.RequestID)...)
		buf = append(buf, bsatn.EncodeU8(m.Flags)...)
		buf = append(buf, bsatn.EncodeString(m.Reducer)...)
		buf = append(buf, bsatn.EncodeBytes(m.Args)...)
		return buf

	case CallProcedure:
		buf := []byte{TagCallProcedure}
		buf = append(buf, bsatn.EncodeU32(m.RequestID)...)
		buf = append(buf, bsatn.EncodeU8(m.Flags)...)
		buf = append(buf, bsatn.EncodeString(m.Procedure)...)
		buf = append(buf, bsatn.EncodeBytes(m.Args)...)
		return buf

	default:
		panic("protocol: unknown ClientMessage variant")
	}
}

func encodeStringArray(ss []string) []byte {
	return bsatn.EncodeArray(ss, bsatn.EncodeString)
}
