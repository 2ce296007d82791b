package docstore

import (
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// SerializationPolicy controls how Go structs are rendered as documents.
type SerializationPolicy struct {
	// OmitNullFields drops nil pointers, interfaces, maps and slices.
	// The driver treats empty maps and slices the same way as nil ones.
	OmitNullFields bool
	// CamelCaseNames names untagged fields with CamelCase instead of the
	// driver's all-lowercase default. Explicit bson tag names are kept.
	CamelCaseNames bool
}

// DefaultSerializationPolicy omits null fields and camel-cases field names.
func DefaultSerializationPolicy() SerializationPolicy {
	return SerializationPolicy{
		OmitNullFields: true,
		CamelCaseNames: true,
	}
}

// NewRegistry returns a BSON registry whose struct codec applies the policy.
func NewRegistry(policy SerializationPolicy) (*bsoncodec.Registry, error) {
	reg := bson.NewRegistry()
	if !policy.OmitNullFields && !policy.CamelCaseNames {
		return reg, nil
	}

	codec, err := bsoncodec.NewStructCodec(structTagParser(policy))
	if err != nil {
		return nil, fmt.Errorf("failed to build struct codec: %w", err)
	}

	reg.RegisterKindEncoder(reflect.Struct, codec)
	reg.RegisterKindDecoder(reflect.Struct, codec)
	return reg, nil
}

func structTagParser(policy SerializationPolicy) bsoncodec.StructTagParserFunc {
	return func(sf reflect.StructField) (bsoncodec.StructTags, error) {
		tags, err := bsoncodec.DefaultStructTagParser(sf)
		if err != nil || tags.Skip {
			return tags, err
		}

		if policy.CamelCaseNames && !hasExplicitName(sf) {
			tags.Name = CamelCase(sf.Name)
		}
		if policy.OmitNullFields && isNullable(sf.Type) {
			tags.OmitEmpty = true
		}

		return tags, nil
	}
}

// hasExplicitName mirrors the driver's tag lookup, including bare `name,omitempty` tags.
func hasExplicitName(sf reflect.StructField) bool {
	tag, ok := sf.Tag.Lookup("bson")
	if !ok {
		if len(sf.Tag) == 0 || strings.Contains(string(sf.Tag), ":") {
			return false
		}
		tag = string(sf.Tag)
	}

	name, _, _ := strings.Cut(tag, ",")
	return name != ""
}

func isNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}
