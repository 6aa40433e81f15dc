package testserver

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
	"google.golang.org/protobuf/proto"
)

const (
	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/x-protobuf"
)

// Body is a request payload. Encode returns the bytes to send and the
// Content-Type to force, empty when the caller's header stays untouched.
type Body interface {
	Encode() (payload []byte, contentType string, err error)
}

type rawBody []byte

// Raw sends b as is.
func Raw(b []byte) Body { return rawBody(b) }

// String sends s as is.
func String(s string) Body { return rawBody(s) }

func (b rawBody) Encode() ([]byte, string, error) {
	return []byte(b), "", nil
}

type jsonField struct {
	path  string
	value any
}

// JSONBody marshals a value with encoding/json and sends it as application/json.
type JSONBody struct {
	value  any
	fields []jsonField
}

// JSON returns a body that marshals v.
func JSON(v any) *JSONBody {
	return &JSONBody{value: v}
}

// Set patches path in the marshaled document, see github.com/tidwall/sjson
// for the path syntax. A nil value starts from an empty object.
func (b *JSONBody) Set(path string, value any) *JSONBody {
	b.fields = append(b.fields, jsonField{path: path, value: value})
	return b
}

func (b *JSONBody) Encode() ([]byte, string, error) {
	var (
		data []byte
		err  error
	)
	if b.value == nil && len(b.fields) > 0 {
		data = []byte("{}")
	} else if data, err = json.Marshal(b.value); err != nil {
		return nil, "", err
	}

	for _, field := range b.fields {
		if data, err = sjson.SetBytes(data, field.path, field.value); err != nil {
			return nil, "", fmt.Errorf("set %s: %w", field.path, err)
		}
	}

	return data, ContentTypeJSON, nil
}

type protoBody struct {
	msg proto.Message
}

// Proto sends m in protobuf wire format.
func Proto(m proto.Message) Body {
	return protoBody{msg: m}
}

func (b protoBody) Encode() ([]byte, string, error) {
	data, err := proto.Marshal(b.msg)
	if err != nil {
		return nil, "", err
	}
	return data, ContentTypeProtobuf, nil
}
