// Package bom exports assessments as CycloneDX documents.
package bom

import (
	"io"
	"runtime/debug"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
)

var version string

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		version = "unknown"
	} else {
		version = info.Main.Version
	}
}

// Builder is a builder pattern for a CycloneDX BOM structure
type Builder struct {
	components      []cdx.Component
	vulnerabilities []cdx.Vulnerability
	properties      []cdx.Property
	now             func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{
		// those MUST be initialized as cyclone-dx JSON schema do not allow items to be null
		components:      []cdx.Component{},
		vulnerabilities: []cdx.Vulnerability{},
		properties:      []cdx.Property{},
		now:             time.Now,
	}
}

func (b *Builder) AppendComponents(components ...cdx.Component) *Builder {
	b.components = append(b.components, components...)
	return b
}

func (b *Builder) AppendVulnerabilities(vulnerabilities ...cdx.Vulnerability) *Builder {
	b.vulnerabilities = append(b.vulnerabilities, vulnerabilities...)
	return b
}

func (b *Builder) AppendProperties(properties ...cdx.Property) *Builder {
	b.properties = append(b.properties, properties...)
	return b
}

// WithClock sets the clock used for the metadata timestamp.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// BOM returns a cdx.BOM based on a data inside the Builder
func (b *Builder) BOM() cdx.BOM {
	bom := cdx.BOM{
		JSONSchema:   "https://cyclonedx.org/schema/bom-1.6.schema.json",
		BOMFormat:    "CycloneDX",
		SpecVersion:  cdx.SpecVersion1_6,
		SerialNumber: "urn:uuid:" + uuid.New().String(),
		Version:      1,
		Metadata: &cdx.Metadata{
			Timestamp: b.now().UTC().Format(time.RFC3339),
			Lifecycles: &[]cdx.Lifecycle{
				{
					Phase: "build",
				},
			},
			// This can't be not nil otherwise this error will happen
			// json: error calling MarshalJSON for type *cyclonedx.ToolsChoice: unexpected end of JSON input
			Component: &cdx.Component{
				Type:    cdx.ComponentTypeApplication,
				Name:    "Gatekeeper",
				Version: version,
				Manufacturer: &cdx.OrganizationalEntity{
					Name:    "CZERTAINLY",
					Address: &cdx.PostalAddress{},
					URL: &[]string{
						"https://www.czertainly.com",
					},
				},
			},
		},
		Components:      &b.components,
		Vulnerabilities: &b.vulnerabilities,
		Properties:      &b.properties,
	}
	return bom
}

// AsJSON encode the BOM into JSON format
func (b *Builder) AsJSON(w io.Writer) error {
	bom := b.BOM()
	return Encode(w, &bom)
}

// Encode writes the document as indented JSON.
func Encode(w io.Writer, bom *cdx.BOM) error {
	return cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(bom)
}
