package grpcsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/profile"
)

// Сообщения сервиса — google.protobuf.Struct, поэтому генерированный код не нужен:
// дескриптор сервиса описан вручную ниже.
const (
	ServiceName = "storefront.v1.ProfileService"

	grpcMethodGetSnapshot      = "/storefront.v1.ProfileService/GetSnapshot"
	grpcMethodListTransactions = "/storefront.v1.ProfileService/ListTransactions"

	defaultListTransactionsLimit = 50
)

// ProfileServiceServer — серверная сторона storefront.v1.ProfileService.
type ProfileServiceServer interface {
	GetSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ProfileService реализует gRPC API поверх реестра профилей.
type ProfileService struct {
	registry *profile.Registry
	logger   *log.Entry
}

// NewProfileService конструирует сервис с зависимостями.
func NewProfileService(registry *profile.Registry, logger *log.Entry) *ProfileService {
	if logger == nil {
		logger = log.New().WithField("component", "profile-service")
	}
	return &ProfileService{registry: registry, logger: logger}
}

// GetSnapshot возвращает сводку профиля. Запрос: {"profile_id": "..."}.
func (s *ProfileService) GetSnapshot(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.loadProfile(req)
	if err != nil {
		return nil, err
	}
	return s.toStruct(p.Snapshot(), "GetSnapshot")
}

// ListTransactions возвращает последние операции профиля.
// Запрос: {"profile_id": "...", "page_size": N}.
func (s *ProfileService) ListTransactions(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.loadProfile(req)
	if err != nil {
		return nil, err
	}

	limit := defaultListTransactionsLimit
	if v, ok := req.GetFields()["page_size"]; ok {
		if n := int(v.GetNumberValue()); n > 0 {
			limit = n
		}
	}

	return s.toStruct(map[string]any{
		"profile_id":   p.ID,
		"transactions": p.Ledger.Recent(limit),
		"total":        p.Ledger.Len(),
	}, "ListTransactions")
}

func (s *ProfileService) loadProfile(req *structpb.Struct) (*profile.Profile, error) {
	id := req.GetFields()["profile_id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "profile_id is required")
	}

	p, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrProfileIDInvalid) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.WithError(err).WithField("profile_id", id).Error("failed to load profile")
		return nil, status.Error(codes.Internal, "failed to load profile")
	}
	return p, nil
}

// toStruct переводит значение в Struct через JSON, чтобы сохранить те же имена полей и
// строковое представление денежных сумм, что и в REST API.
func (s *ProfileService) toStruct(v any, operation string) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.WithError(err).WithField("operation", operation).Error("failed to encode response")
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to decode response: %v", err))
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to build response: %v", err))
	}
	return out, nil
}

func getSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProfileServiceServer).GetSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: grpcMethodGetSnapshot}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProfileServiceServer).GetSnapshot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listTransactionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProfileServiceServer).ListTransactions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: grpcMethodListTransactions}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProfileServiceServer).ListTransactions(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ProfileServiceDesc — дескриптор storefront.v1.ProfileService.
var ProfileServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
		{MethodName: "ListTransactions", Handler: listTransactionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/profile_service.proto",
}

// RegisterProfileServiceServer регистрирует сервис на gRPC-сервере.
func RegisterProfileServiceServer(s grpc.ServiceRegistrar, srv ProfileServiceServer) {
	s.RegisterService(&ProfileServiceDesc, srv)
}

// ProfileServiceClient — клиент storefront.v1.ProfileService.
type ProfileServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewProfileServiceClient создаёт клиента поверх соединения.
func NewProfileServiceClient(cc grpc.ClientConnInterface) *ProfileServiceClient {
	return &ProfileServiceClient{cc: cc}
}

// GetSnapshot вызывает ProfileService/GetSnapshot.
func (c *ProfileServiceClient) GetSnapshot(ctx context.Context, profileID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, grpcMethodGetSnapshot, map[string]any{"profile_id": profileID}, opts...)
}

// ListTransactions вызывает ProfileService/ListTransactions.
func (c *ProfileServiceClient) ListTransactions(ctx context.Context, profileID string, pageSize int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, grpcMethodListTransactions, map[string]any{"profile_id": profileID, "page_size": pageSize}, opts...)
}

func (c *ProfileServiceClient) invoke(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
