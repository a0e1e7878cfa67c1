package gameclient

import (
	"fmt"

	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Frame types exchanged with the bridge.
const (
	frameLogin    = "login"
	frameJoin     = "join"
	frameCommand  = "command"
	frameChat     = "chat"
	frameMsg      = "msg"
	framePlayers  = "players"
	frameDropInv  = "dropinv"
	frameReady    = "ready"
	frameFailed   = "login_failed"
	frameResponse = "response"
	frameKicked   = "kicked"
	frameEnd      = "end"
	framePM       = "private_message"
	frameSubSrv   = "subserver"
	frameTPA      = "tpa"
	frameError    = "error"
)

// encodeFrame builds a binary frame of the given type. Values must be
// representable by structpb (strings, numbers, bools, []any, map[string]any).
func encodeFrame(typ string, fields map[string]any) ([]byte, error) {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["type"] = typ
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", typ, err)
	}
	return proto.Marshal(st)
}

func decodeFrame(data []byte) (*structpb.Struct, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &st, nil
}

func strField(st *structpb.Struct, key string) string {
	return st.GetFields()[key].GetStringValue()
}

func boolField(st *structpb.Struct, key string) bool {
	return st.GetFields()[key].GetBoolValue()
}

func seqField(st *structpb.Struct) uint32 {
	return uint32(st.GetFields()["seq"].GetNumberValue())
}

func listField(st *structpb.Struct, key string) []string {
	vals := st.GetFields()[key].GetListValue().GetValues()
	return lo.FilterMap(vals, func(v *structpb.Value, _ int) (string, bool) {
		s := v.GetStringValue()
		return s, s != ""
	})
}
