package config

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	schemaPackage = "skipset"
	configMessage = "Config"
)

// schemaField is a config leaf; its name is the name of the flag it sets.
type schemaField struct {
	flagName string
	kind     descriptorpb.FieldDescriptorProto_Type
}

// schemaSection groups the flags of one component under a field of the root Config message.
type schemaSection struct {
	name    string // Field name inside Config.
	message string // Message name of the section.
	fields  []schemaField
}

// configSections is the config file schema. Adding a flag means adding its leaf here, otherwise
// CollectUnregisteredFlags reports it.
var configSections = []schemaSection{
	{name: "logging", message: "LoggingConfig", fields: []schemaField{
		{flagName: "log_handler_type", kind: descriptorpb.FieldDescriptorProto_TYPE_STRING},
		{flagName: "log_level", kind: descriptorpb.FieldDescriptorProto_TYPE_STRING},
	}},
	{name: "skiplist", message: "SkipListConfig", fields: []schemaField{
		{flagName: "skiplist_max_height", kind: descriptorpb.FieldDescriptorProto_TYPE_INT32},
		{flagName: "skiplist_promotion_probability", kind: descriptorpb.FieldDescriptorProto_TYPE_DOUBLE},
	}},
	{name: "filter", message: "FilterConfig", fields: []schemaField{
		{flagName: "filter_expected_keys", kind: descriptorpb.FieldDescriptorProto_TYPE_UINT32},
		{flagName: "filter_false_positive_rate", kind: descriptorpb.FieldDescriptorProto_TYPE_DOUBLE},
		{flagName: "filter_rebuild_ratio", kind: descriptorpb.FieldDescriptorProto_TYPE_DOUBLE},
	}},
	{name: "server", message: "ServerConfig", fields: []schemaField{
		{flagName: "address", kind: descriptorpb.FieldDescriptorProto_TYPE_STRING},
		{flagName: "metrics_address", kind: descriptorpb.FieldDescriptorProto_TYPE_STRING},
	}},
}

func optionalField(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type,
) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   kind.Enum(),
	}
}

// buildSchema compiles `sections` into the descriptor of the root Config message.
func buildSchema(sections []schemaSection) (protoreflect.MessageDescriptor, error) {
	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(schemaPackage + "/config.proto"),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto2"),
	}
	root := &descriptorpb.DescriptorProto{Name: proto.String(configMessage)}
	for sectionIdx, section := range sections {
		sectionMessage := &descriptorpb.DescriptorProto{Name: proto.String(section.message)}
		for fieldIdx, field := range section.fields {
			sectionMessage.Field = append(sectionMessage.Field,
				optionalField(field.flagName, int32(fieldIdx+1), field.kind))
		}
		file.MessageType = append(file.MessageType, sectionMessage)

		sectionField := optionalField(section.name, int32(sectionIdx+1), descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
		sectionField.TypeName = proto.String("." + schemaPackage + "." + section.message)
		root.Field = append(root.Field, sectionField)
	}
	file.MessageType = append(file.MessageType, root)

	fd, err := protodesc.NewFile(file, new(protoregistry.Files))
	if err != nil {
		return nil, fmt.Errorf("failed to build config schema: %w", err)
	}
	return fd.Messages().ByName(configMessage), nil
}

// configSchema returns the descriptor of the root Config message.
var configSchema = sync.OnceValues(func() (protoreflect.MessageDescriptor, error) {
	return buildSchema(configSections)
})
