package value

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// MessageFromValue builds a dynamic proto message of the given descriptor
// from a Value, for the gRPC client's request encoding (§4.6: the script
// passes a plain object/Map, wrkr encodes it against the method's input
// descriptor before sending it on the wire).
func MessageFromValue(md protoreflect.MessageDescriptor, v Value) (proto.Message, error) {
	msg := dynamicpb.NewMessage(md)
	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("value: proto message requires a Map value, got %s", v.Kind())
	}
	if err := fillMessage(msg, m); err != nil {
		return nil, err
	}
	return msg, nil
}

func fillMessage(msg *dynamicpb.Message, m *Map) error {
	fields := msg.Descriptor().Fields()
	var err error
	m.Range(func(k MapKey, fv Value) bool {
		if k.Kind() != KindString {
			err = fmt.Errorf("value: proto field name must be a string key, got %s", k.Kind())
			return false
		}
		fd := fields.ByName(protoreflect.Name(k.String()))
		if fd == nil {
			fd = fields.ByJSONName(k.String())
		}
		if fd == nil {
			// Unknown fields are dropped rather than rejected: scripts
			// routinely build request objects from response objects of a
			// different message type.
			return true
		}
		var pv protoreflect.Value
		pv, err = toProtoValue(fd, fv)
		if err != nil {
			return false
		}
		msg.Set(fd, pv)
		return true
	})
	return err
}

func toProtoValue(fd protoreflect.FieldDescriptor, v Value) (protoreflect.Value, error) {
	if fd.IsList() {
		items, ok := v.AsList()
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("value: field %q expects a list", fd.Name())
		}
		list := dynamicpb.NewMessage(fd.ContainingMessage()).NewField(fd).List()
		for _, item := range items {
			ev, err := scalarOrMessageValue(fd, item)
			if err != nil {
				return protoreflect.Value{}, err
			}
			list.Append(ev)
		}
		return protoreflect.ValueOfList(list), nil
	}
	if fd.IsMap() {
		mv, ok := v.AsMap()
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("value: field %q expects a map", fd.Name())
		}
		pmap := dynamicpb.NewMessage(fd.ContainingMessage()).NewField(fd).Map()
		var rngErr error
		mv.Range(func(k MapKey, ev Value) bool {
			mapKey, err := mapKeyToProtoMapKey(fd.MapKey(), k)
			if err != nil {
				rngErr = err
				return false
			}
			val, err := scalarOrMessageValue(fd.MapValue(), ev)
			if err != nil {
				rngErr = err
				return false
			}
			pmap.Set(mapKey, val)
			return true
		})
		if rngErr != nil {
			return protoreflect.Value{}, rngErr
		}
		return protoreflect.ValueOfMap(pmap), nil
	}
	return scalarOrMessageValue(fd, v)
}

func mapKeyToProtoMapKey(fd protoreflect.FieldDescriptor, k MapKey) (protoreflect.MapKey, error) {
	switch fd.Kind() {
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(k.String()).MapKey(), nil
	case protoreflect.BoolKind:
		if k.Kind() != KindBool {
			return protoreflect.MapKey{}, fmt.Errorf("value: proto map key expects bool")
		}
		b, _ := k.asBool()
		return protoreflect.ValueOfBool(b).MapKey(), nil
	default:
		i, ok := k.asInt()
		if !ok {
			return protoreflect.MapKey{}, fmt.Errorf("value: unsupported proto map key kind %s", fd.Kind())
		}
		return protoreflect.ValueOfInt64(i).MapKey(), nil
	}
}

func (k MapKey) asBool() (bool, bool) {
	if k.kind != KindBool {
		return false, false
	}
	return k.b, true
}

func (k MapKey) asInt() (int64, bool) {
	if k.kind != KindI64 {
		return 0, false
	}
	return k.i, true
}

func scalarOrMessageValue(fd protoreflect.FieldDescriptor, v Value) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		b, ok := v.AsBool()
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfBool(b), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		i, ok := asInt64(v)
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfInt32(int32(i)), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		i, ok := asInt64(v)
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfInt64(i), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		u, ok := asUint64(v)
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfUint32(uint32(u)), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		u, ok := asUint64(v)
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfUint64(u), nil
	case protoreflect.FloatKind:
		f, ok := v.Float64()
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfFloat32(float32(f)), nil
	case protoreflect.DoubleKind:
		f, ok := v.Float64()
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfFloat64(f), nil
	case protoreflect.StringKind:
		s, ok := v.AsString()
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfString(s), nil
	case protoreflect.BytesKind:
		b, ok := v.AsBytes()
		if !ok {
			return protoreflect.Value{}, fieldTypeErr(fd, v)
		}
		return protoreflect.ValueOfBytes(b), nil
	case protoreflect.EnumKind:
		return enumValue(fd, v)
	case protoreflect.MessageKind, protoreflect.GroupKind:
		sub, err := MessageFromValue(fd.Message(), v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfMessage(sub.ProtoReflect()), nil
	default:
		return protoreflect.Value{}, fmt.Errorf("value: unsupported proto field kind %s", fd.Kind())
	}
}

func enumValue(fd protoreflect.FieldDescriptor, v Value) (protoreflect.Value, error) {
	if s, ok := v.AsString(); ok {
		ev := fd.Enum().Values().ByName(protoreflect.Name(s))
		if ev == nil {
			return protoreflect.Value{}, fmt.Errorf("value: unknown enum value %q for %s", s, fd.Enum().FullName())
		}
		return protoreflect.ValueOfEnum(ev.Number()), nil
	}
	i, ok := asInt64(v)
	if !ok {
		return protoreflect.Value{}, fieldTypeErr(fd, v)
	}
	return protoreflect.ValueOfEnum(protoreflect.EnumNumber(i)), nil
}

func asInt64(v Value) (int64, bool) {
	switch v.Kind() {
	case KindI64:
		return v.i, true
	case KindU64:
		return int64(v.u), true
	case KindF64:
		return int64(v.f), true
	default:
		return 0, false
	}
}

func asUint64(v Value) (uint64, bool) {
	switch v.Kind() {
	case KindU64:
		return v.u, true
	case KindI64:
		return uint64(v.i), true
	case KindF64:
		return uint64(v.f), true
	default:
		return 0, false
	}
}

func fieldTypeErr(fd protoreflect.FieldDescriptor, v Value) error {
	return fmt.Errorf("value: field %q (%s) cannot hold a %s", fd.Name(), fd.Kind(), v.Kind())
}

// ValueFromMessage converts a decoded proto message into a Value Map, for
// the gRPC client's response decoding.
func ValueFromMessage(msg protoreflect.Message) Value {
	m := NewMap()
	msg.Range(func(fd protoreflect.FieldDescriptor, pv protoreflect.Value) bool {
		m.Set(StringKey(string(fd.Name())), fromProtoValue(fd, pv))
		return true
	})
	return FromMap(m)
}

func fromProtoValue(fd protoreflect.FieldDescriptor, pv protoreflect.Value) Value {
	switch {
	case fd.IsMap():
		m := NewMap()
		pv.Map().Range(func(mk protoreflect.MapKey, mv protoreflect.Value) bool {
			m.Set(protoMapKeyToKey(fd.MapKey(), mk), fromScalarOrMessage(fd.MapValue(), mv))
			return true
		})
		return FromMap(m)
	case fd.IsList():
		list := pv.List()
		items := make([]Value, list.Len())
		for i := 0; i < list.Len(); i++ {
			items[i] = fromScalarOrMessage(fd, list.Get(i))
		}
		return List(items)
	default:
		return fromScalarOrMessage(fd, pv)
	}
}

func protoMapKeyToKey(fd protoreflect.FieldDescriptor, mk protoreflect.MapKey) MapKey {
	switch fd.Kind() {
	case protoreflect.StringKind:
		return StringKey(mk.String())
	case protoreflect.BoolKind:
		return BoolKey(mk.Bool())
	default:
		return IntKey(mk.Int())
	}
}

func fromScalarOrMessage(fd protoreflect.FieldDescriptor, pv protoreflect.Value) Value {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return Bool(pv.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return I64(pv.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return U64(pv.Uint())
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return F64(pv.Float())
	case protoreflect.StringKind:
		return String(pv.String())
	case protoreflect.BytesKind:
		return Bytes(pv.Bytes())
	case protoreflect.EnumKind:
		desc := fd.Enum().Values().ByNumber(pv.Enum())
		if desc != nil {
			return String(string(desc.Name()))
		}
		return I64(int64(pv.Enum()))
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return ValueFromMessage(pv.Message())
	default:
		return Null()
	}
}
