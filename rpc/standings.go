package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/wfunc/rajamantri/models"
)

// JSONCodec carries messages as JSON so the service needs no generated protobuf code.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                               { return "json" }

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type RoomReply struct {
	Room models.RoomView `json:"room"`
}

type ResultsReply struct {
	RoomID  string            `json:"roomId"`
	Results []models.Standing `json:"results"`
}

const (
	standingsGetRoom    = "/rmcs.Standings/GetRoom"
	standingsGetResults = "/rmcs.Standings/GetResults"
)

// StandingsServer is the server API for the rmcs.Standings service.
type StandingsServer interface {
	GetRoom(context.Context, *RoomRequest) (*RoomReply, error)
	GetResults(context.Context, *RoomRequest) (*ResultsReply, error)
}

func RegisterStandingsServer(s grpc.ServiceRegistrar, srv StandingsServer) {
	s.RegisterService(&StandingsServiceDesc, srv)
}

func _Standings_GetRoom_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RoomRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StandingsServer).GetRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: standingsGetRoom}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StandingsServer).GetRoom(ctx, req.(*RoomRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Standings_GetResults_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RoomRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StandingsServer).GetResults(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: standingsGetResults}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StandingsServer).GetResults(ctx, req.(*RoomRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var StandingsServiceDesc = grpc.ServiceDesc{
	ServiceName: "rmcs.Standings",
	HandlerType: (*StandingsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRoom", Handler: _Standings_GetRoom_Handler},
		{MethodName: "GetResults", Handler: _Standings_GetResults_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rmcs/standings",
}

// StandingsClient calls rmcs.Standings. Dial with grpc.ForceCodec(JSONCodec{}).
type StandingsClient struct {
	cc grpc.ClientConnInterface
}

func NewStandingsClient(cc grpc.ClientConnInterface) *StandingsClient {
	return &StandingsClient{cc: cc}
}

func (c *StandingsClient) GetRoom(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*RoomReply, error) {
	out := new(RoomReply)
	if err := c.cc.Invoke(ctx, standingsGetRoom, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StandingsClient) GetResults(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*ResultsReply, error) {
	out := new(ResultsReply)
	if err := c.cc.Invoke(ctx, standingsGetResults, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
