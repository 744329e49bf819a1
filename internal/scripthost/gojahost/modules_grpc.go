package gojahost

import (
	"context"
	"time"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/grpcclient"
	"github.com/nogcio/wrkr/internal/value"
)

// installGRPCModule installs the `grpc` built-in (§4.6): load/connect/invoke
// against a pre-compiled descriptor set. Each `connect()` call returns a
// handle object closing over the underlying *grpcclient.Client so the
// script can call `.invoke(fullMethod, req, opts)` against it; the Host
// tracks every handle it creates so Close() can tear them all down.
func (h *Host) installGRPCModule() {
	module := map[string]interface{}{
		"load": func(name string, descriptorSetBytes []byte) (interface{}, error) {
			descriptors, err := grpcclient.Load(descriptorSetBytes)
			if err != nil {
				return nil, err
			}
			if h.deps.Descriptors == nil {
				h.deps.Descriptors = map[string]*grpcclient.Descriptors{}
			}
			h.deps.Descriptors[name] = descriptors
			return name, nil
		},
		"connect": func(descriptorName, target string, rawOpts map[string]interface{}) (interface{}, error) {
			descriptors, ok := h.deps.Descriptors[descriptorName]
			if !ok {
				return nil, wrkrerr.InvalidUsage("grpc.connect: unknown descriptor set %q; call grpc.load first", descriptorName)
			}
			opts := decodeConnectOpts(rawOpts)
			client, err := grpcclient.Connect(context.Background(), descriptors, target, opts)
			if err != nil {
				return nil, err
			}
			handleName := descriptorName + "@" + target
			h.grpcClients[handleName] = client
			return h.makeGRPCHandle(client), nil
		},
	}
	h.vm.Set("grpc", module)
}

func (h *Host) makeGRPCHandle(client *grpcclient.Client) map[string]interface{} {
	return map[string]interface{}{
		"invoke": func(fullMethod string, req interface{}, rawOpts map[string]interface{}) (interface{}, error) {
			opts := decodeInvokeOpts(rawOpts)
			resp, err := client.Invoke(context.Background(), h.deps.Metrics, h.runner.BaseTags(), fullMethod, nativeToValue(req), opts)
			if err != nil {
				return nil, err
			}
			return valueToNative(resp.ToValue()), nil
		},
	}
}

func decodeConnectOpts(raw map[string]interface{}) grpcclient.ConnectOptions {
	opts := grpcclient.ConnectOptions{}
	if t, ok := raw["timeout"]; ok {
		opts.Timeout = durationFromNative(t)
	}
	if tls, ok := raw["tls"].(bool); ok {
		opts.TLS = tls
	}
	if ps, ok := numKey(raw, "poolSize", "pool_size"); ok {
		opts.PoolSize = int(ps)
	}
	if mv, ok := numKey(raw, "maxVUs", "max_vus"); ok {
		opts.MaxVUs = int(mv)
	}
	return opts
}

func decodeInvokeOpts(raw map[string]interface{}) grpcclient.InvokeOptions {
	opts := grpcclient.InvokeOptions{Timeout: 30 * time.Second}
	if t, ok := raw["timeout"]; ok {
		opts.Timeout = durationFromNative(t)
	}
	if md, ok := raw["metadata"].(map[string]interface{}); ok {
		opts.Metadata = make(map[string][]string, len(md))
		for k, v := range md {
			opts.Metadata[k] = []string{toStringScalarAny(v)}
		}
	}
	if tg, ok := raw["tags"].(map[string]interface{}); ok {
		tags := value.NewTags()
		for k, v := range tg {
			tags = tags.With(k, value.TagString(toStringScalarAny(v)))
		}
		opts.Tags = tags
	}
	return opts
}

func toStringScalarAny(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return toStringScalar(v)
}
