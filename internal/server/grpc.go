package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "travelintake.v1.ExtractionService"

// ExtractionServer is the server API for travelintake.v1.ExtractionService.
// Messages are google.protobuf.Struct so clients need no generated stubs.
type ExtractionServer interface {
	StandardizePassport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StandardizeBoardingPass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportTravelers(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

func unaryHandler[Resp any](method string, call func(ExtractionServer, context.Context, *structpb.Struct) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var extractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StandardizePassport", Handler: unaryHandler("StandardizePassport", ExtractionServer.StandardizePassport)},
		{MethodName: "StandardizeBoardingPass", Handler: unaryHandler("StandardizeBoardingPass", ExtractionServer.StandardizeBoardingPass)},
		{MethodName: "ProcessFile", Handler: unaryHandler("ProcessFile", ExtractionServer.ProcessFile)},
		{MethodName: "GetDocument", Handler: unaryHandler("GetDocument", ExtractionServer.GetDocument)},
		{MethodName: "ExportTravelers", Handler: unaryHandler("ExportTravelers", ExtractionServer.ExportTravelers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "travelintake/v1/extraction.proto",
}

// RegisterExtractionServer registers srv on s.
func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&extractionServiceDesc, srv)
}

// ExtractionService implements ExtractionServer over the pipeline.
type ExtractionService struct {
	deps   Deps
	logger *slog.Logger
}

func NewExtractionService(deps Deps, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{deps: deps, logger: logger}
}

func (s *ExtractionService) StandardizePassport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.standardize(ctx, constants.Passport, req)
}

func (s *ExtractionService) StandardizeBoardingPass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.standardize(ctx, constants.BoardingPass, req)
}

func (s *ExtractionService) standardize(ctx context.Context, dt constants.DocumentType, req *structpb.Struct) (*structpb.Struct, error) {
	text, ok := req.GetFields()["text"]
	if !ok {
		return nil, common.InvalidArgumentError("text is required")
	}
	if _, isString := text.GetKind().(*structpb.Value_StringValue); !isString {
		return nil, common.InvalidArgumentError("text must be a string")
	}
	ext, err := pipeline.Standardize(dt, text.GetStringValue())
	if err != nil {
		return nil, common.ToStatus(err)
	}
	common.LoggerFromContext(ctx, s.logger).Debug("standardized text",
		"doc_type", dt, "needs_review", ext.NeedsReview())
	return toStruct(standardizeResponse(ext))
}

func (s *ExtractionService) ProcessFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Processor == nil {
		return nil, status.Error(codes.Unimplemented, "processing is not configured")
	}
	c, err := s.deps.capture(captureRequest{
		Path:    stringField(req, "path"),
		DocType: stringField(req, "doc_type"),
		Subtype: stringField(req, "subtype"),
		Date:    stringField(req, "date"),
	})
	if err != nil {
		return nil, common.ToStatus(err)
	}
	res, err := s.deps.Processor.Process(ctx, c)
	if err != nil {
		if errors.Is(err, common.ErrDuplicate) && res != nil {
			common.LoggerFromContext(ctx, s.logger).Info("capture already processed",
				"path", c.Path, "doc_id", res.DocumentID)
		}
		return nil, common.ToStatus(err)
	}
	return toStruct(resultResponse(res))
}

func (s *ExtractionService) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Documents == nil {
		return nil, status.Error(codes.Unimplemented, "document lookup is not configured")
	}
	id := stringField(req, "document_id")
	if err := common.ValidateAndReturnError(common.NewValidator().Field("document_id", id, common.Required, common.UUID)); err != nil {
		return nil, err
	}
	doc, err := s.deps.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(documentResponse(doc))
}

func (s *ExtractionService) ExportTravelers(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if s.deps.Exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	from, err := parseDay(stringField(req, "from"))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	to, err := parseDay(stringField(req, "to"))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	data, err := s.deps.Exporter.TravelersXLSX(ctx, from, to)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return wrapperspb.Bytes(data), nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

// NewGRPCServer builds a server carrying the extraction service, the standard
// health service and reflection. The returned health server is SERVING.
func NewGRPCServer(svc ExtractionServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(loggingInterceptor(logger))}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterExtractionServer(gs, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(gs)
	return gs, hs
}

// loggingInterceptor tags each call with a request ID (taken from the
// x-request-id metadata when present) and logs its outcome.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, id)

		start := time.Now()
		resp, err := handler(ctx, req)
		log := common.LoggerFromContext(ctx, logger).With(
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		switch status.Code(err) {
		case codes.OK:
			log.Info("grpc request")
		case codes.Internal, codes.Unknown, codes.Unavailable:
			log.Error("grpc request failed", "error", err)
		default:
			log.Warn("grpc request rejected", "error", err)
		}
		return resp, err
	}
}

// ExtractionClient calls a remote ExtractionService.
type ExtractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) *ExtractionClient {
	return &ExtractionClient{cc: cc}
}

func (c *ExtractionClient) StandardizePassport(ctx context.Context, text string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.invokeStruct(ctx, "StandardizePassport", map[string]any{"text": text}, opts...)
}

func (c *ExtractionClient) StandardizeBoardingPass(ctx context.Context, text string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.invokeStruct(ctx, "StandardizeBoardingPass", map[string]any{"text": text}, opts...)
}

func (c *ExtractionClient) ProcessFile(ctx context.Context, path, docType, subtype string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.invokeStruct(ctx, "ProcessFile", map[string]any{"path": path, "doc_type": docType, "subtype": subtype}, opts...)
}

func (c *ExtractionClient) GetDocument(ctx context.Context, id string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.invokeStruct(ctx, "GetDocument", map[string]any{"document_id": id}, opts...)
}

func (c *ExtractionClient) ExportTravelers(ctx context.Context, from, to string, opts ...grpc.CallOption) ([]byte, error) {
	in, err := structpb.NewStruct(map[string]any{"from": from, "to": to})
	if err != nil {
		return nil, err
	}
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ExportTravelers", in, out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func (c *ExtractionClient) invokeStruct(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
