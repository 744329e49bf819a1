package grpcclient

import (
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
)

// protoregistryFiles resolves "package.Service/Method" strings against a
// loaded descriptor set's service definitions.
type protoregistryFiles struct {
	files *protoregistry.Files
}

func (p *protoregistryFiles) method(fullMethod string) (protoreflect.MethodDescriptor, error) {
	serviceName, methodName, err := splitFullMethod(fullMethod)
	if err != nil {
		return nil, err
	}

	desc, err := p.files.FindDescriptorByName(protoreflect.FullName(serviceName))
	if err != nil {
		return nil, wrkrerr.InvalidUsage("unknown service %q: %s", serviceName, err)
	}
	svc, ok := desc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, wrkrerr.InvalidUsage("%q is not a service", serviceName)
	}
	md := svc.Methods().ByName(protoreflect.Name(methodName))
	if md == nil {
		return nil, wrkrerr.InvalidUsage("unknown method %q on service %q", methodName, serviceName)
	}
	return md, nil
}

// splitFullMethod accepts either "package.Service/Method" (the gRPC wire
// form) or "package.Service.Method" and normalizes to the two parts.
func splitFullMethod(fullMethod string) (service, method string, err error) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	if idx := strings.LastIndex(fullMethod, "/"); idx >= 0 {
		return fullMethod[:idx], fullMethod[idx+1:], nil
	}
	idx := strings.LastIndex(fullMethod, ".")
	if idx < 0 {
		return "", "", wrkrerr.InvalidUsage("malformed full method %q", fullMethod)
	}
	return fullMethod[:idx], fullMethod[idx+1:], nil
}
