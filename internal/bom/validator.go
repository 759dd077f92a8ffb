package bom

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
	jss "github.com/kaptinlin/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var versionToPath = map[cdx.SpecVersion]string{
	cdx.SpecVersion1_6: "schemas/bom-1.6.schema.json",
}

// referenced by $ref from the BOM schemas, registered under their $id
var sharedSchemas = []string{
	"schemas/spdx.schema.json",
	"schemas/jsf-0.82.schema.json",
}

// Validator checks exported documents against the CycloneDX JSON schema.
type Validator struct {
	schemas map[cdx.SpecVersion]*jss.Schema
}

func NewValidator(versions ...cdx.SpecVersion) (Validator, error) {
	var zero Validator
	compiler := jss.NewCompiler()
	for _, path := range sharedSchemas {
		b, err := schemaFS.ReadFile(path)
		if err != nil {
			return zero, fmt.Errorf("reading embedded schema: %w", err)
		}
		if _, err := compiler.Compile(b); err != nil {
			return zero, fmt.Errorf("compiling schema %s: %w", path, err)
		}
	}

	schemas := make(map[cdx.SpecVersion]*jss.Schema, len(versions))
	for _, ver := range versions {
		path, ok := versionToPath[ver]
		if !ok {
			return zero, fmt.Errorf("unknown schema version: %s", ver)
		}
		b, err := schemaFS.ReadFile(path)
		if err != nil {
			return zero, fmt.Errorf("reading embedded schema: %w", err)
		}
		schema, err := compiler.Compile(b)
		if err != nil {
			return zero, fmt.Errorf("compiling schema: %w", err)
		}
		schemas[ver] = schema
	}
	return Validator{
		schemas: schemas,
	}, nil
}

// Validate encodes the BOM as JSON and validates the result.
func (v Validator) Validate(ctx context.Context, bom *cdx.BOM) error {
	schema, err := v.versionToSchema(bom.SpecVersion)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := cdx.NewBOMEncoder(&buf, cdx.BOMFileFormatJSON).Encode(bom); err != nil {
		return fmt.Errorf("encoding bom to JSON: %w", err)
	}
	return v.validateBytes(ctx, schema, buf.Bytes())
}

// ValidateBytes validates an encoded document, the schema is picked by its
// specVersion.
func (v Validator) ValidateBytes(ctx context.Context, b []byte) error {
	var bom struct {
		SpecVersion cdx.SpecVersion `json:"specVersion"`
	}
	if err := json.Unmarshal(b, &bom); err != nil {
		return fmt.Errorf("reading spec version: %w", err)
	}

	schema, err := v.versionToSchema(bom.SpecVersion)
	if err != nil {
		return err
	}
	return v.validateBytes(ctx, schema, b)
}

func (v Validator) versionToSchema(version cdx.SpecVersion) (*jss.Schema, error) {
	schema, ok := v.schemas[version]
	if !ok {
		supported := make([]string, 0, len(v.schemas))
		for k := range v.schemas {
			supported = append(supported, k.String())
		}
		slices.Sort(supported)
		return nil, fmt.Errorf("unsupported BOM specification version: supported %s: got: %s",
			strings.Join(supported, ","),
			version,
		)
	}
	return schema, nil
}

func (v Validator) validateBytes(ctx context.Context, schema *jss.Schema, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := schema.Validate(b)
	if res.Valid {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors))
	for _, err := range res.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", err.Keyword, err.Error()))
	}
	slices.Sort(msgs)
	return fmt.Errorf("BOM validation failed:\n%s", strings.Join(msgs, "\n"))
}
