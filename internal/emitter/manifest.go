package emitter

import (
	"github.com/drblury/eventbind/internal/compiler"
	"github.com/drblury/eventbind/internal/model"
	"github.com/drblury/eventbind/internal/runtime/jsoncodec"
)

// Manifest is the JSON description of a generated binding table.
type Manifest struct {
	Strategy model.Strategy    `json:"strategy"`
	Package  model.PackageRef  `json:"package"`
	Types    []ManifestBinding `json:"types"`
}

type ManifestBinding struct {
	Type    string           `json:"type"`
	Owner   string           `json:"owner"`
	Package model.PackageRef `json:"package"`
	Events  []ManifestEvent  `json:"events"`
}

type ManifestEvent struct {
	EventType string           `json:"eventType"`
	Methods   []ManifestMethod `json:"methods"`
}

type ManifestMethod struct {
	Name         string `json:"name"`
	Qualified    string `json:"qualified"`
	Position     string `json:"position,omitempty"`
	ReturnsError bool   `json:"returnsError,omitempty"`
}

// NewManifest describes result as it will be generated into the output
// package described by opts.
func NewManifest(result *compiler.Result, opts Options) Manifest {
	m := Manifest{
		Strategy: result.Strategy,
		Package:  model.PackageRef{Path: opts.PackagePath, Name: opts.Package},
		Types:    make([]ManifestBinding, 0, len(result.Types)),
	}
	for _, tb := range result.Types {
		b := ManifestBinding{
			Type:    tb.Type.Key,
			Owner:   tb.OwnerKey(),
			Package: tb.Package,
		}
		for _, g := range tb.Groups {
			ev := ManifestEvent{EventType: g.EventType.Key}
			for _, method := range g.Methods {
				ev.Methods = append(ev.Methods, ManifestMethod{
					Name:         method.Name,
					Qualified:    method.QualifiedName(),
					Position:     method.Position,
					ReturnsError: len(method.Results) == 1 && method.Results[0].Key == "error",
				})
			}
			b.Events = append(b.Events, ev)
		}
		m.Types = append(m.Types, b)
	}
	return m
}

func renderManifest(result *compiler.Result, opts Options) ([]byte, error) {
	return jsoncodec.MarshalDocument(NewManifest(result, opts))
}
