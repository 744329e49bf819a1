// Package grpcclient implements the scripted gRPC Client (§4.6):
// load/connect/invoke against a pre-compiled FileDescriptorSet, backed by a
// round-robin pool of grpc.ClientConns.
//
// The grammar-level spec mentions parsing a .proto file directly, but no
// .proto-grammar parser exists anywhere in the dependency corpus this
// module was grounded on; `Load` therefore accepts pre-compiled
// FileDescriptorSet bytes (what `protoc --descriptor_set_out` produces) and
// resolves method descriptors via protodesc/dynamicpb, both part of
// google.golang.org/protobuf which the corpus already depends on.
package grpcclient

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

// clampPoolSize applies the default pool-sizing formula (§4.6):
// clamp(floor(max_vus/8), 16, 64).
func clampPoolSize(maxVUs int) int {
	size := maxVUs / 8
	if size < 16 {
		size = 16
	}
	if size > 64 {
		size = 64
	}
	return size
}

// Descriptors is a loaded, cached FileDescriptorSet (§4.6 "load ... parses
// and caches a descriptor set").
type Descriptors struct {
	files *protoregistryFiles
}

// Load parses a raw FileDescriptorSet (protoc's --descriptor_set_out
// output) into a queryable descriptor registry.
func Load(descriptorSetBytes []byte) (*Descriptors, error) {
	var fdSet descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(descriptorSetBytes, &fdSet); err != nil {
		return nil, wrkrerr.InvalidUsage("cannot parse FileDescriptorSet: %s", err)
	}
	files, err := protodesc.NewFiles(&fdSet)
	if err != nil {
		return nil, wrkrerr.InvalidUsage("cannot build descriptor registry: %s", err)
	}
	return &Descriptors{files: &protoregistryFiles{files: files}}, nil
}

// Method resolves `package.Service/Method` to its input/output message
// descriptors.
func (d *Descriptors) Method(fullMethod string) (protoreflect.MethodDescriptor, error) {
	return d.files.method(fullMethod)
}

// Client is one script-created gRPC client instance (§5 Resource policy:
// "one per script-created instance; pool internal").
type Client struct {
	descriptors *Descriptors
	conns       []*grpc.ClientConn
	next        int64
}

// ConnectOptions configures Connect (§4.6). MaxVUs feeds the default
// pool-sizing formula when PoolSize is left unset.
type ConnectOptions struct {
	Timeout  time.Duration
	TLS      bool
	PoolSize int
	MaxVUs   int
}

// Connect establishes the client's connection pool against target (§4.6).
func Connect(ctx context.Context, descriptors *Descriptors, target string, opts ConnectOptions) (*Client, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = clampPoolSize(opts.MaxVUs)
	}
	if poolSize < 1 {
		return nil, wrkrerr.InvalidUsage("pool_size must be a positive finite integer")
	}

	creds := grpc.WithTransportCredentials(insecure.NewCredentials())
	if opts.TLS {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(nil))
	}

	c := &Client{descriptors: descriptors}
	for i := 0; i < poolSize; i++ {
		dialCtx := ctx
		var cancel context.CancelFunc
		if opts.Timeout > 0 {
			dialCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}
		conn, err := grpc.DialContext(dialCtx, target, creds, grpc.WithBlock())
		if cancel != nil {
			cancel()
		}
		if err != nil {
			c.Close()
			return nil, wrkrerr.Transport(fmt.Sprintf("cannot connect to %s", target), err)
		}
		c.conns = append(c.conns, conn)
	}
	return c, nil
}

// Close tears down every pooled connection.
func (c *Client) Close() {
	for _, conn := range c.conns {
		_ = conn.Close()
	}
}

func (c *Client) pick() *grpc.ClientConn {
	n := atomic.AddInt64(&c.next, 1)
	return c.conns[int(n)%len(c.conns)]
}

// InvokeOptions configures one unary call (§4.6).
type InvokeOptions struct {
	Timeout  time.Duration
	Metadata map[string][]string
	Tags     value.Tags
}

// Response is the Value Model shape returned to the script (§4.6): never an
// error for protocol-level or transport failures.
type Response struct {
	OK        bool
	Status    int // grpc status code, 0..16
	Message   string
	Error     string
	ErrorKind string
	Headers   metadata.MD
	Trailers  metadata.MD
	Response  value.Value
}

// ToValue renders r as the Value Map the script observes.
func (r Response) ToValue() value.Value {
	m := value.NewMap()
	m.Set(value.StringKey("ok"), value.Bool(r.OK))
	m.Set(value.StringKey("status"), value.I64(int64(r.Status)))
	if r.Error != "" {
		m.Set(value.StringKey("error"), value.String(r.Error))
		m.Set(value.StringKey("error_kind"), value.String(r.ErrorKind))
	}
	m.Set(value.StringKey("headers"), mdToValue(r.Headers))
	m.Set(value.StringKey("trailers"), mdToValue(r.Trailers))
	if !r.Response.IsNull() {
		m.Set(value.StringKey("response"), r.Response)
	}
	return value.FromMap(m)
}

func mdToValue(md metadata.MD) value.Value {
	m := value.NewMap()
	for k, vs := range md {
		if len(vs) > 0 {
			m.Set(value.StringKey(k), value.String(vs[len(vs)-1]))
		}
	}
	return value.FromMap(m)
}

// Invoke performs one unary RPC, recording grpc_req_duration, grpc_reqs,
// grpc_req_failed, data_received and data_sent regardless of outcome
// (§4.6).
func (c *Client) Invoke(ctx context.Context, metricsEngine *metrics.Engine, baseTags value.Tags, fullMethod string, req value.Value, opts InvokeOptions) (Response, error) {
	md, err := c.descriptors.Method(fullMethod)
	if err != nil {
		return Response{}, err
	}

	reqMsg, err := value.MessageFromValue(md.Input(), req)
	if err != nil {
		return Response{}, wrkrerr.InvalidUsage("cannot encode request: %s", err)
	}
	reqBytes, _ := proto.Marshal(reqMsg)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if len(opts.Metadata) > 0 {
		callCtx = metadata.NewOutgoingContext(callCtx, metadata.MD(cloneMetadata(opts.Metadata)))
	}

	respMsg := dynamicpb.NewMessage(md.Output())
	var headers, trailers metadata.MD

	name := string(md.Name())
	tags := baseTags.
		With(metrics.TagMethod, value.TagString(fullMethod)).
		With("name", value.TagString(name)).
		WithAll(opts.Tags)

	start := time.Now()
	err = c.pick().Invoke(callCtx, "/"+fullMethod, reqMsg, respMsg,
		grpc.Header(&headers), grpc.Trailer(&trailers))
	duration := time.Since(start)

	metricsEngine.AddCounter(metrics.MetricGRPCReqs, tags, 1)
	metricsEngine.AddCounter(metrics.MetricDataSent, tags, float64(len(reqBytes)))

	statusCode := codes.OK
	var resp Response
	if err != nil {
		statusCode = status.Code(err)
		kind := "Protocol"
		if statusCode == codes.Unavailable || statusCode == codes.DeadlineExceeded {
			kind = "Transport"
		}
		metricsEngine.AddCounter(metrics.MetricDataReceived, tags.With(metrics.TagStatus, value.TagInt(int64(statusCode))), 0)
		resp = Response{OK: false, Status: int(statusCode), Error: err.Error(), ErrorKind: kind, Headers: headers, Trailers: trailers}
	} else {
		respBytes, _ := proto.Marshal(respMsg)
		metricsEngine.AddCounter(metrics.MetricDataReceived, tags.With(metrics.TagStatus, value.TagInt(int64(statusCode))), float64(len(respBytes)))
		resp = Response{OK: true, Status: int(statusCode), Headers: headers, Trailers: trailers, Response: value.ValueFromMessage(respMsg.ProtoReflect())}
	}

	statusTags := tags.With(metrics.TagStatus, value.TagInt(int64(statusCode)))
	metricsEngine.RecordTrend(metrics.MetricGRPCReqDuration, statusTags, float64(duration.Microseconds()))
	metricsEngine.ObserveRate(metrics.MetricGRPCReqFailed, statusTags, statusCode != codes.OK)

	return resp, nil
}

func cloneMetadata(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
