package metadata

// Header keys written by the message bridge.
const (
	EventTypeKey     = "eventbind_event_type"
	ContentTypeKey   = "eventbind_content_type"
	CorrelationIDKey = "correlation_id"
)

// Content types a bridge payload can carry.
const (
	ContentTypeJSON  = "application/json"
	ContentTypeProto = "application/protobuf"
)

// Metadata holds the headers carried alongside an event.
type Metadata map[string]string

// Clone returns a shallow copy; the result is never nil.
func (m Metadata) Clone() Metadata {
	cloned := make(Metadata, len(m))
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// With returns a copy of m with key set to value.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.Clone()
	cloned[key] = value
	return cloned
}

func (m Metadata) EventType() string     { return m[EventTypeKey] }
func (m Metadata) ContentType() string   { return m[ContentTypeKey] }
func (m Metadata) CorrelationID() string { return m[CorrelationIDKey] }

// New builds Metadata from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
