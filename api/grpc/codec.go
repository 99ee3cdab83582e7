package grpcapi

import (
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

// Name is the codec name clients must select when dialing.
const Name = "json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals request and response messages as JSON. The API surface
// uses plain structs; there is no generated message code, so the default
// proto codec does not apply.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return Name
}
