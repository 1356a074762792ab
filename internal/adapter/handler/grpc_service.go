package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// The gRPC surface exchanges JSON messages, so no generated stubs are
// needed. Clients must call with grpc.CallContentSubtype(JSONCodecName).

const (
	JSONCodecName      = "json"
	maintenanceService = "maintenance.v1.MaintenanceService"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type PromoteRequest struct {
	ScheduleID string `json:"scheduleId"`
	UserID     string `json:"userId"`
}

type CompleteScheduleRequest struct {
	ScheduleID string `json:"scheduleId"`
	UserID     string `json:"userId"`
}

type TicketRequest struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId,omitempty"`
}

type StatsRequest struct{}

type RestoreResponse struct {
	Success bool `json:"success"`
}

type StatsResponse struct {
	Total              int `json:"total"`
	Upcoming           int `json:"upcoming"`
	Overdue            int `json:"overdue"`
	CompletedThisMonth int `json:"completedThisMonth"`
}

type MaintenanceServiceServer interface {
	PromoteSchedule(context.Context, *PromoteRequest) (*PromotionResponse, error)
	MarkCompleted(context.Context, *CompleteScheduleRequest) (*ScheduleResponse, error)
	RestoreInventory(context.Context, *TicketRequest) (*RestoreResponse, error)
	CompleteTicket(context.Context, *TicketRequest) (*TicketResponse, error)
	GetStats(context.Context, *StatsRequest) (*StatsResponse, error)
}

func unaryMethod[Req, Resp any](name string, call func(MaintenanceServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + maintenanceService + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MaintenanceServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MaintenanceServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var MaintenanceServiceDesc = grpc.ServiceDesc{
	ServiceName: maintenanceService,
	HandlerType: (*MaintenanceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("PromoteSchedule", MaintenanceServiceServer.PromoteSchedule),
		unaryMethod("MarkCompleted", MaintenanceServiceServer.MarkCompleted),
		unaryMethod("RestoreInventory", MaintenanceServiceServer.RestoreInventory),
		unaryMethod("CompleteTicket", MaintenanceServiceServer.CompleteTicket),
		unaryMethod("GetStats", MaintenanceServiceServer.GetStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "maintenance/v1/maintenance.json",
}

func RegisterMaintenanceServiceServer(s grpc.ServiceRegistrar, srv MaintenanceServiceServer) {
	s.RegisterService(&MaintenanceServiceDesc, srv)
}

// MaintenanceClient calls MaintenanceServiceDesc over a client connection.
type MaintenanceClient struct {
	cc grpc.ClientConnInterface
}

func NewMaintenanceClient(cc grpc.ClientConnInterface) *MaintenanceClient {
	return &MaintenanceClient{cc: cc}
}

func (c *MaintenanceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(JSONCodecName))
	return c.cc.Invoke(ctx, "/"+maintenanceService+"/"+method, in, out, opts...)
}

func (c *MaintenanceClient) PromoteSchedule(ctx context.Context, in *PromoteRequest, opts ...grpc.CallOption) (*PromotionResponse, error) {
	out := new(PromotionResponse)
	if err := c.invoke(ctx, "PromoteSchedule", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MaintenanceClient) MarkCompleted(ctx context.Context, in *CompleteScheduleRequest, opts ...grpc.CallOption) (*ScheduleResponse, error) {
	out := new(ScheduleResponse)
	if err := c.invoke(ctx, "MarkCompleted", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MaintenanceClient) RestoreInventory(ctx context.Context, in *TicketRequest, opts ...grpc.CallOption) (*RestoreResponse, error) {
	out := new(RestoreResponse)
	if err := c.invoke(ctx, "RestoreInventory", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MaintenanceClient) CompleteTicket(ctx context.Context, in *TicketRequest, opts ...grpc.CallOption) (*TicketResponse, error) {
	out := new(TicketResponse)
	if err := c.invoke(ctx, "CompleteTicket", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MaintenanceClient) GetStats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	out := new(StatsResponse)
	if err := c.invoke(ctx, "GetStats", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
