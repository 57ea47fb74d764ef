package server

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"iocwatch/internal/correlate"
	"iocwatch/internal/eventlog"
	"iocwatch/internal/metrics"
)

// CorrelateMethod is the full gRPC method name of the correlator service.
const CorrelateMethod = "/iocwatch.v1.Correlator/Correlate"

// CorrelatorServer correlates a batch of events. The request is a Struct
// with an "events" list of log objects; the response lists the matches.
type CorrelatorServer interface {
	Correlate(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error)
}

func RegisterCorrelatorServer(s grpc.ServiceRegistrar, srv CorrelatorServer) {
	s.RegisterService(&correlatorServiceDesc, srv)
}

var correlatorServiceDesc = grpc.ServiceDesc{
	ServiceName: "iocwatch.v1.Correlator",
	HandlerType: (*CorrelatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Correlate", Handler: correlateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "iocwatch/v1/correlator.proto",
}

func correlateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CorrelatorServer).Correlate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CorrelateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CorrelatorServer).Correlate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type correlatorService struct {
	srv *Server
}

func (c *correlatorService) Correlate(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	events := req.GetFields()["events"].GetListValue()
	if events == nil {
		return nil, status.Error(codes.InvalidArgument, `request must carry an "events" list`)
	}

	records := make([]eventlog.LogRecord, 0, len(events.GetValues()))
	malformed := 0
	for _, v := range events.GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			malformed++
			continue
		}
		line, err := json.Marshal(obj.AsMap())
		if err != nil {
			malformed++
			continue
		}
		rec, err := eventlog.ParseLine(line)
		if err != nil {
			malformed++
			continue
		}
		records = append(records, rec)
	}
	metrics.ParseErrors.Add(float64(malformed))

	return matchesToList(c.srv.correlateBatch(records))
}

func matchesToList(matches correlate.MatchReport) (*structpb.ListValue, error) {
	values := make([]any, 0, len(matches))
	for _, m := range matches {
		values = append(values, map[string]any{
			"timestamp":       optional(m.Timestamp),
			"src_ip":          optional(m.SrcIP),
			"dest_ip":         optional(m.DestIP),
			"alert_signature": m.AlertSignature,
		})
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode matches: %v", err)
	}
	return list, nil
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
