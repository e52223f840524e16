// Package codec encodes the events carried by the message bridge and maps
// header event names back to Go types.
package codec

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"

	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
	"github.com/drblury/eventbind/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/eventbind/internal/runtime/metadata"
)

// Codec converts events to and from message payloads.
type Codec interface {
	ContentType() string
	Marshal(event any) ([]byte, error)
	Unmarshal(data []byte, into any) error
}

// JSON encodes any value with the shared sonic configuration.
type JSON struct{}

func (JSON) ContentType() string { return metadatapkg.ContentTypeJSON }

func (JSON) Marshal(event any) ([]byte, error) {
	return jsoncodec.Marshal(event)
}

func (JSON) Unmarshal(data []byte, into any) error {
	return jsoncodec.Unmarshal(data, into)
}

// Proto encodes protobuf messages in the binary wire format.
type Proto struct{}

func (Proto) ContentType() string { return metadatapkg.ContentTypeProto }

func (Proto) Marshal(event any) ([]byte, error) {
	msg, ok := event.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a protobuf message", errspkg.ErrUnsupportedContent, event)
	}
	return proto.Marshal(msg)
}

func (Proto) Unmarshal(data []byte, into any) error {
	msg, ok := into.(proto.Message)
	if !ok {
		return fmt.Errorf("%w: cannot decode protobuf into %T", errspkg.ErrUnsupportedContent, into)
	}
	return proto.Unmarshal(data, msg)
}

// For picks Proto for protobuf messages and JSON for everything else.
func For(event any) Codec {
	if _, ok := event.(proto.Message); ok {
		return Proto{}
	}
	return JSON{}
}

// ForContentType returns the codec for a content type header. An empty
// header selects JSON.
func ForContentType(contentType string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "", metadatapkg.ContentTypeJSON:
		return JSON{}, nil
	case metadatapkg.ContentTypeProto:
		return Proto{}, nil
	}
	return nil, fmt.Errorf("%w: %q", errspkg.ErrUnsupportedContent, contentType)
}
