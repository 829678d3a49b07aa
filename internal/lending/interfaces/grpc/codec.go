package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName 客户端需以 grpc.CallContentSubtype(CodecName) 调用
const CodecName = "json"

// jsonCodec 以 JSON 编码请求与响应，消息类型复用应用层 DTO
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
