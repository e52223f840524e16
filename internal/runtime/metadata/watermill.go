package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// FromWatermill copies the headers of a Watermill message.
func FromWatermill(md message.Metadata) Metadata {
	return Metadata(md).Clone()
}

// ToWatermill copies m into a Watermill header map.
func ToWatermill(m Metadata) message.Metadata {
	return message.Metadata(m.Clone())
}
