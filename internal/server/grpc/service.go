package grpc

import (
	"context"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service. Every method takes and
// returns a google.protobuf.Struct.
const ServiceName = common.PortalServiceName

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type handlerFunc func(s *GRPCServer, ctx context.Context, in args) (map[string]any, error)

var methods = []struct {
	name string
	h    handlerFunc
}{
	{"Ping", (*GRPCServer).ping},
	{"ExchangeLoginLink", (*GRPCServer).exchangeLoginLink},

	{"GetProgress", (*GRPCServer).getProgress},
	{"Advance", (*GRPCServer).advance},
	{"SelectProgram", (*GRPCServer).selectProgram},
	{"ConfirmInvitation", (*GRPCServer).confirmInvitation},
	{"SetVisaTrackingCode", (*GRPCServer).setVisaTrackingCode},
	{"RequestUploadURL", (*GRPCServer).requestUploadURL},
	{"UploadDocument", (*GRPCServer).uploadDocument},
	{"DeleteDocument", (*GRPCServer).deleteDocument},
	{"ListDocuments", (*GRPCServer).listDocuments},
	{"SubmitForReview", (*GRPCServer).submitForReview},
	{"GetReviewStatus", (*GRPCServer).getReviewStatus},
	{"GetDocumentLink", (*GRPCServer).getDocumentLink},
	{"ListNotifications", (*GRPCServer).listNotifications},
	{"MarkNotificationRead", (*GRPCServer).markNotificationRead},

	{"RegisterStudent", (*GRPCServer).registerStudent},
	{"GetStudent", (*GRPCServer).getStudent},
	{"SetDocumentStatus", (*GRPCServer).setDocumentStatus},
	{"SetStep", (*GRPCServer).setStep},
	{"ApproveStep", (*GRPCServer).approveStep},
	{"RejectStep", (*GRPCServer).rejectStep},
	{"UploadCountersignedContract", (*GRPCServer).uploadCountersignedContract},
	{"UploadInvitationLetter", (*GRPCServer).uploadInvitationLetter},
	{"UploadFlightTicket", (*GRPCServer).uploadFlightTicket},
	{"GetAuditLog", (*GRPCServer).getAuditLog},
}

func serviceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Metadata:    "portal/v1/portal.proto",
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, unary(m.name, m.h))
	}
	return desc
}

func unary(name string, h handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := func(ctx context.Context, req any) (any, error) {
				return srv.(*GRPCServer).invoke(ctx, h, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, call)
		},
	}
}

func (s *GRPCServer) invoke(ctx context.Context, h handlerFunc, req *structpb.Struct) (*structpb.Struct, error) {
	out, err := h(s, ctx, args{req})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	res, err := structpb.NewStruct(out)
	if err != nil {
		s.logger.Error(ctx, "encode response", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return res, nil
}
